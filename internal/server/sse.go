package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
)

// heartbeatInterval keeps proxies from timing out the connection during long
// generation calls.
const heartbeatInterval = 15 * time.Second

// eventStream writes server-sent events. All writes happen on the handler
// goroutine; the pipeline feeds it through a channel.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// send writes one event with a fresh id and flushes it.
func (es *eventStream) send(event pipeline.EventType, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "server: marshal event")
	}
	if _, err := fmt.Fprintf(es.w, "event: %s\nid: %s\ndata: %s\n\n", event, uuid.New().String(), payload); err != nil {
		return eris.Wrap(err, "server: write event")
	}
	es.flusher.Flush()
	return nil
}

// heartbeat writes a comment line, which clients ignore.
func (es *eventStream) heartbeat() error {
	if _, err := fmt.Fprint(es.w, ": heartbeat\n\n"); err != nil {
		return eris.Wrap(err, "server: write heartbeat")
	}
	es.flusher.Flush()
	return nil
}

// handleTransformStream runs the pipeline and streams its progress. The
// stream always ends with exactly one terminal event, complete or error,
// unless the client disconnects first.
func (s *Server) handleTransformStream(w http.ResponseWriter, r *http.Request) {
	var req model.TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	log := zap.L().With(zap.String("request_id", middleware.GetReqID(ctx)))
	es := &eventStream{w: w, flusher: flusher}

	if err := es.send(pipeline.EventStart, pipeline.Event{
		Type:    pipeline.EventStart,
		Message: "starting transformation",
	}); err != nil {
		return
	}

	events := make(chan pipeline.Event, 16)
	done := make(chan *model.WorkflowState, 1)
	go func() {
		state := s.runner.Run(ctx, req, func(ev pipeline.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- state
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("server: stream client disconnected")
			return

		case <-heartbeat.C:
			if err := es.heartbeat(); err != nil {
				log.Debug("server: stream heartbeat failed", zap.Error(err))
				return
			}

		case ev, open := <-events:
			if !open {
				s.finishStream(es, <-done, log)
				return
			}
			if err := es.send(ev.Type, ev); err != nil {
				log.Debug("server: stream write failed", zap.Error(err))
				return
			}
		}
	}
}

// finishStream emits the single terminal event for a finished run. Write
// errors are ignored; the client may already be gone.
func (s *Server) finishStream(es *eventStream, state *model.WorkflowState, log *zap.Logger) {
	if msg, failed := pipeline.StructuralFailure(state); failed {
		_ = es.send(pipeline.EventError, pipeline.Event{Type: pipeline.EventError, Message: msg})
		return
	}
	if msg, failed := pipeline.OperationalFailure(state); failed {
		_ = es.send(pipeline.EventError, pipeline.Event{Type: pipeline.EventError, Message: msg})
		return
	}

	if err := es.send(pipeline.EventComplete, pipeline.Response(state)); err != nil {
		log.Debug("server: stream terminal write failed", zap.Error(err))
	}
}
