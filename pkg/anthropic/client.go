package anthropic

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the generation operations used by the transform pipeline.
type Client interface {
	// GenerateJSON sends a system+user prompt pair and returns the JSON
	// object extracted from the model's reply.
	GenerateJSON(ctx context.Context, req GenerationRequest) (map[string]any, error)

	// GenerateJSONStream is GenerateJSON with incremental delivery. The
	// returned channel yields zero or more content chunks followed by
	// exactly one terminal chunk: Done with the extracted document, or Err.
	// The channel is closed after the terminal chunk.
	GenerateJSONStream(ctx context.Context, req GenerationRequest) (<-chan StreamChunk, error)

	// Ping verifies the client has credentials and a model configured.
	// It does not issue an API call.
	Ping(ctx context.Context) error

	// Stats returns cumulative token usage across all calls made through
	// this client.
	Stats() UsageStats
}

// GenerationRequest is a single system+user prompt pair. CacheSystem marks
// the system block for prompt caching, which pays off when retries resend an
// identical system prompt.
type GenerationRequest struct {
	System      string
	User        string
	MaxTokens   int64 // 0 means the client default
	Temperature *float64
	CacheSystem bool
}

// StreamChunk is one increment of a streaming generation. Content chunks
// arrive first; the final chunk has Done set and carries either the extracted
// document and usage, or the terminal error.
type StreamChunk struct {
	Content string
	Done    bool
	Doc     map[string]any
	Usage   TokenUsage
	Err     error
}

// TokenUsage tracks token consumption for a single generation call.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// UsageStats is cumulative token consumption over a client's lifetime.
type UsageStats struct {
	InputTokens  int64
	OutputTokens int64
	APICalls     int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model ID.
// Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	cacheWriteCost := (float64(u.CacheCreationInputTokens) / 1e6) * pricing[0] * 1.25
	cacheReadCost := (float64(u.CacheReadInputTokens) / 1e6) * pricing[0] * 0.1
	return inCost + outCost + cacheWriteCost + cacheReadCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, phase string) {
	cost := u.EstimateCost(model)
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", cost),
	)
}

// Options configures a Client.
type Options struct {
	APIKey            string
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
	Timeout           time.Duration
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	hasKey    bool

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
	apiCalls     atomic.Int64
}

// streamBuffer bounds how far SSE forwarding can run ahead of the consumer.
const streamBuffer = 16

// NewClient creates a new generation client backed by the SDK. Calls are
// throttled to opts.RequestsPerMinute.
func NewClient(opts Options) Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 16000
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &sdkClient{
		client:    sdk.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1),
		hasKey:    opts.APIKey != "",
	}
}

func (c *sdkClient) GenerateJSON(ctx context.Context, req GenerationRequest) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: rate limit wait")
	}

	msg, err := c.client.Messages.New(ctx, c.messageParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	c.record(usageFromSDK(msg.Usage))

	doc, err := ExtractJSON(collectText(msg))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *sdkClient) GenerateJSONStream(ctx context.Context, req GenerationRequest) (<-chan StreamChunk, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: rate limit wait")
	}

	stream := c.client.Messages.NewStreaming(ctx, c.messageParams(req))
	ch := make(chan StreamChunk, streamBuffer)

	go func() {
		defer close(ch)
		defer stream.Close() //nolint:errcheck

		var acc sdk.Message
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				ch <- StreamChunk{Done: true, Err: eris.Wrap(err, "anthropic: accumulate stream")}
				return
			}
			switch ev := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
					ch <- StreamChunk{Content: delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			ch <- StreamChunk{Done: true, Err: eris.Wrap(err, "anthropic: stream")}
			return
		}

		usage := usageFromSDK(acc.Usage)
		c.record(usage)

		doc, err := ExtractJSON(collectText(&acc))
		if err != nil {
			ch <- StreamChunk{Done: true, Err: err}
			return
		}
		ch <- StreamChunk{Done: true, Doc: doc, Usage: usage}
	}()

	return ch, nil
}

func (c *sdkClient) Ping(_ context.Context) error {
	if !c.hasKey {
		return eris.New("anthropic: api key not configured")
	}
	if c.model == "" {
		return eris.New("anthropic: model not configured")
	}
	return nil
}

func (c *sdkClient) Stats() UsageStats {
	return UsageStats{
		InputTokens:  c.inputTokens.Load(),
		OutputTokens: c.outputTokens.Load(),
		APICalls:     c.apiCalls.Load(),
	}
}

func (c *sdkClient) record(u TokenUsage) {
	c.inputTokens.Add(u.InputTokens)
	c.outputTokens.Add(u.OutputTokens)
	c.apiCalls.Add(1)
}

func (c *sdkClient) messageParams(req GenerationRequest) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		block := sdk.TextBlockParam{Text: req.System}
		if req.CacheSystem {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		params.System = []sdk.TextBlockParam{block}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func usageFromSDK(u sdk.Usage) TokenUsage {
	return TokenUsage{
		InputTokens:              u.InputTokens,
		OutputTokens:             u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}

// collectText concatenates the text blocks of a message in order.
func collectText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
