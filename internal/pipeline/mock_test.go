package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// mockGenerator is a testify mock for the generation client.
type mockGenerator struct {
	mock.Mock
}

var _ anthropic.Client = (*mockGenerator)(nil)

func (m *mockGenerator) GenerateJSON(ctx context.Context, req anthropic.GenerationRequest) (map[string]any, error) {
	args := m.Called(ctx, req)
	if doc := args.Get(0); doc != nil {
		return doc.(map[string]any), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) GenerateJSONStream(ctx context.Context, req anthropic.GenerationRequest) (<-chan anthropic.StreamChunk, error) {
	args := m.Called(ctx, req)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan anthropic.StreamChunk), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGenerator) Stats() anthropic.UsageStats {
	args := m.Called()
	return args.Get(0).(anthropic.UsageStats)
}
