package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	failures  int
	calls     int
	embedErr  error
	responses []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(_ context.Context, _ CompletionRequest) (*CompletionResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("upstream unavailable")
	}
	content := "ok"
	if len(s.responses) > 0 {
		content = s.responses[0]
	}
	return &CompletionResponse{Provider: s.name, Content: content}, nil
}

func (s *stubProvider) Embed(_ context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	s.calls++
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	embeddings := make([][]float32, len(req.Input))
	for i := range embeddings {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return &EmbeddingResponse{Provider: s.name, Embeddings: embeddings}, nil
}

func TestGatewayCompleteSuccess(t *testing.T) {
	primary := &stubProvider{name: "openai"}
	g := NewGateway(primary, nil, 0)

	resp, err := g.Complete(context.Background(), CompletionRequest{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 1, primary.calls)
}

func TestGatewayCompleteRetriesThenSucceeds(t *testing.T) {
	primary := &stubProvider{name: "openai", failures: 1}
	g := NewGateway(primary, nil, 2)

	resp, err := g.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 2, primary.calls)
}

func TestGatewayCompleteFallsBack(t *testing.T) {
	primary := &stubProvider{name: "openai", failures: 10}
	fallback := &stubProvider{name: "anthropic"}
	g := NewGateway(primary, fallback, 0)

	resp, err := g.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestGatewayCompleteExhausted(t *testing.T) {
	primary := &stubProvider{name: "openai", failures: 10}
	g := NewGateway(primary, nil, 0)

	_, err := g.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestGatewayEmbedStaysOnPrimary(t *testing.T) {
	primary := &stubProvider{name: "openai"}
	fallback := &stubProvider{name: "anthropic"}
	g := NewGateway(primary, fallback, 0)

	resp, err := g.Embed(context.Background(), EmbeddingRequest{Input: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, resp.Embeddings, 2)
	assert.Zero(t, fallback.calls)
}

func TestGatewayEmbedError(t *testing.T) {
	primary := &stubProvider{name: "openai", embedErr: errors.New("quota")}
	g := NewGateway(primary, nil, 0)

	_, err := g.Embed(context.Background(), EmbeddingRequest{Input: []string{"a"}})
	assert.Error(t, err)
}
