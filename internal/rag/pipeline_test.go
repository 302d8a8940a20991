package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/api/internal/llm"
	"github.com/docuchat/api/internal/vectorstore"
)

type stubStore struct {
	upserted []vectorstore.Chunk
	results  []vectorstore.SearchResult
	lastOpts vectorstore.SearchOptions
}

func (s *stubStore) Upsert(_ context.Context, chunks []vectorstore.Chunk) error {
	s.upserted = append(s.upserted, chunks...)
	return nil
}

func (s *stubStore) SimilaritySearch(_ context.Context, _ []float32, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	s.lastOpts = opts
	return s.results, nil
}

func (s *stubStore) HybridSearch(_ context.Context, _ string, _ []float32, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error) {
	s.lastOpts = opts
	return s.results, nil
}

func (s *stubStore) Delete(_ context.Context, _ vectorstore.DeleteFilter) error { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	return vecs[0], err
}

type stubCompleter struct {
	lastReq llm.CompletionRequest
	content string
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	return &llm.CompletionResponse{Model: "gpt-4o-mini", Content: s.content, TotalTokens: 42}, nil
}

func newTestPipeline(store *stubStore, completer *stubCompleter) Pipeline {
	retriever := NewRetriever(store, stubEmbedder{}, nil)
	generator := NewGenerator(completer, "gpt-4o-mini")
	return NewPipeline(store, stubEmbedder{}, retriever, generator, PipelineConfig{TopK: 5, MinScore: 0.75})
}

func TestIngestStoresChunks(t *testing.T) {
	store := &stubStore{}
	p := newTestPipeline(store, &stubCompleter{})

	userID := uuid.New()
	docID := uuid.New()

	n, err := p.Ingest(context.Background(), IngestRequest{
		DocumentID: docID,
		UserID:     userID,
		Content:    strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100),
	})
	require.NoError(t, err)
	assert.Equal(t, n, len(store.upserted))
	assert.Greater(t, n, 1)

	for _, c := range store.upserted {
		assert.Equal(t, docID, c.DocumentID)
		assert.Equal(t, userID, c.UserID)
		assert.NotEmpty(t, c.Content)
		assert.Greater(t, c.TokenCount, 0)
	}
}

func TestIngestEmptyContent(t *testing.T) {
	p := newTestPipeline(&stubStore{}, &stubCompleter{})

	_, err := p.Ingest(context.Background(), IngestRequest{Content: "   "})
	assert.Error(t, err)
}

func TestQueryNoResultsReturnsCannedAnswer(t *testing.T) {
	completer := &stubCompleter{content: "should not be called"}
	p := newTestPipeline(&stubStore{}, completer)

	resp, err := p.Query(context.Background(), QueryRequest{UserID: uuid.New(), Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, resp.Answer)
	assert.Empty(t, resp.Citations)
	assert.Empty(t, completer.lastReq.Messages)
}

func TestQueryGeneratesCitedAnswer(t *testing.T) {
	store := &stubStore{results: []vectorstore.SearchResult{
		{ChunkID: uuid.New(), DocumentID: uuid.New(), Filename: "report.pdf", Content: "Revenue grew 12%.", Score: 0.91},
		{ChunkID: uuid.New(), DocumentID: uuid.New(), Filename: "notes.docx", Content: "Churn fell.", Score: 0.82},
	}}
	completer := &stubCompleter{content: "Revenue grew 12% [Source 1]."}
	p := newTestPipeline(store, completer)

	resp, err := p.Query(context.Background(), QueryRequest{UserID: uuid.New(), Query: "How did revenue do?"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12% [Source 1].", resp.Answer)
	require.Len(t, resp.Citations, 2)
	assert.Equal(t, "report.pdf", resp.Citations[0].Filename)
	assert.Equal(t, 42, resp.Tokens)

	// The prompt carries the numbered context blocks.
	require.Len(t, completer.lastReq.Messages, 2)
	assert.Contains(t, completer.lastReq.Messages[1].Content, "[Source 1]")
	assert.Contains(t, completer.lastReq.Messages[1].Content, "Revenue grew 12%.")
}

func TestQueryAppliesDefaults(t *testing.T) {
	store := &stubStore{}
	p := newTestPipeline(store, &stubCompleter{})

	userID := uuid.New()
	_, err := p.Query(context.Background(), QueryRequest{UserID: userID, Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 5, store.lastOpts.TopK)
	assert.InDelta(t, 0.75, store.lastOpts.MinScore, 1e-9)
	assert.Equal(t, userID, store.lastOpts.UserID)
}
