package pipeline

// EventType enumerates the progress notifications emitted during a run.
// Stage and chunk events come from the controller; start and the terminal
// complete/error pair are the transport's responsibility.
type EventType string

const (
	EventStart         EventType = "start"
	EventStageStart    EventType = "stage_start"
	EventStageComplete EventType = "stage_complete"
	EventStageSkipped  EventType = "stage_skipped"
	EventChunk         EventType = "generation_chunk"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is one progress notification.
type Event struct {
	Type    EventType `json:"event"`
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Chunk   string    `json:"chunk,omitempty"`
	Seq     int       `json:"seq,omitempty"`
}

// EventSink receives progress events. The pipeline blocks while a sink runs,
// so implementations must return promptly.
type EventSink func(Event)

func nopSink(Event) {}
