package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// transform invokes the generation backend and force-restores every locked
// field in the result. Generation failure leaves Transformed nil and records
// the error; the pipeline continues and the consistency stage scores it 0.
func (c *Controller) transform(ctx context.Context, state *model.WorkflowState, env *runEnv) (string, error) {
	req := anthropic.GenerationRequest{
		System:      c.systemPrompt(state),
		User:        c.userPrompt(state),
		MaxTokens:   int64(c.cfg.Anthropic.MaxTokens),
		CacheSystem: true,
	}

	var doc map[string]any
	var err error
	if env.streaming {
		doc, err = c.generateStream(ctx, req, env)
	} else {
		doc, err = c.gen.GenerateJSON(ctx, req)
	}
	if err != nil {
		state.AppendError(model.ValidationError{Stage: string(StageTransform), Error: err.Error()})
		return "", err
	}

	state.Transformed = restoreLocked(doc, state.Input, c.policy.ContainerKey, state.LockedFields)

	return fmt.Sprintf("generated document with %d entity mappings applied", len(state.EntityMap)), nil
}

// generateStream consumes the chunk channel, forwarding content to the sink
// until the terminal chunk delivers the document or an error.
func (c *Controller) generateStream(ctx context.Context, req anthropic.GenerationRequest, env *runEnv) (map[string]any, error) {
	ch, err := c.gen.GenerateJSONStream(ctx, req)
	if err != nil {
		return nil, err
	}

	seq := 0
	for chunk := range ch {
		if chunk.Done {
			if chunk.Err != nil {
				return nil, chunk.Err
			}
			chunk.Usage.LogCost(c.cfg.Anthropic.Model, "transform")
			return chunk.Doc, nil
		}
		seq++
		env.sink(Event{Type: EventChunk, Stage: StageTransform, Chunk: chunk.Content, Seq: seq})
	}
	return nil, eris.New("pipeline: generation stream closed without terminal chunk")
}

// restoreLocked overwrites every locked field in the generated document with
// a deep copy of its original value, re-wrapping bare container contents
// under the container key when the backend returned them unwrapped. This is
// the binding integrity guarantee; the validator only verifies it held.
func restoreLocked(doc, input map[string]any, containerKey string, locked []string) map[string]any {
	contents, ok := doc[containerKey].(map[string]any)
	if !ok {
		contents = doc
	}

	original, _ := input[containerKey].(map[string]any)
	for _, field := range locked {
		if value, present := original[field]; present {
			contents[field] = jsonwalk.DeepCopy(value)
		}
	}

	return map[string]any{containerKey: contents}
}

func (c *Controller) systemPrompt(state *model.WorkflowState) string {
	var locked strings.Builder
	for _, field := range state.LockedFields {
		locked.WriteString("   - ")
		locked.WriteString(field)
		locked.WriteString("\n")
	}

	return fmt.Sprintf(`You are transforming a business simulation JSON from one scenario to another.

CRITICAL RULES:
1. NEVER modify these locked fields (keep byte-for-byte identical):
%s
2. Keep EXACT same JSON structure (same keys, same nesting, same array lengths)

3. Apply these entity mappings consistently:
%s

4. Replace ALL brand names, competitor names, industry terms, and contextual details

5. Maintain professional instructional tone

6. Preserve field types (string to string, array to array)

7. Keep email format patterns (e.g., name@domain.com)

8. Adapt KPIs and metrics to new industry context while preserving magnitude

Output ONLY valid JSON matching the input structure.`, locked.String(), indentJSON(state.EntityMap))
}

func (c *Controller) userPrompt(state *model.WorkflowState) string {
	container, _ := state.Input[c.policy.ContainerKey].(map[string]any)

	lockedSet := make(map[string]bool, len(state.LockedFields))
	for _, field := range state.LockedFields {
		lockedSet[field] = true
	}
	eligible := make(map[string]any, len(container))
	for key, value := range container {
		if !lockedSet[key] {
			eligible[key] = value
		}
	}

	return fmt.Sprintf(`Transform from current to target scenario.

CURRENT: %s...
TARGET: %s...

MAPPINGS:
%s

TRANSFORM THESE FIELDS:
%s

Return COMPLETE %s as JSON.`,
		excerpt(state.CurrentScenarioText, 200),
		excerpt(state.SelectedScenarioText, 200),
		indentJSON(state.EntityMap),
		indentJSON(eligible),
		c.policy.ContainerKey)
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
