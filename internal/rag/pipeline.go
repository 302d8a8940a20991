// Package rag implements the retrieval-augmented pipeline: chunk and embed
// documents on ingest, retrieve relevant chunks and generate cited answers
// on query.
package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docuchat/api/internal/embedding"
	"github.com/docuchat/api/internal/vectorstore"
	"github.com/docuchat/api/pkg/chunker"
	"github.com/docuchat/api/pkg/tokenizer"
)

// NoContextAnswer is returned when retrieval finds nothing above the
// similarity threshold.
const NoContextAnswer = "I couldn't find any relevant information in your documents to answer that question. Try uploading a document that covers this topic, or rephrase your question."

type Pipeline interface {
	Ingest(ctx context.Context, req IngestRequest) (int, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	Search(ctx context.Context, req SearchRequest) ([]vectorstore.SearchResult, error)
}

type IngestRequest struct {
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Content    string
	ChunkOpts  chunker.ChunkOptions
}

type QueryRequest struct {
	UserID      uuid.UUID
	Query       string
	DocumentIDs []uuid.UUID
	TopK        int
	MinScore    float64
	Hybrid      bool
}

type QueryResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Model     string     `json:"model"`
	Tokens    int        `json:"tokens"`
}

type SearchRequest struct {
	UserID      uuid.UUID
	Query       string
	DocumentIDs []uuid.UUID
	TopK        int
	MinScore    float64
	Hybrid      bool
}

type PipelineConfig struct {
	TopK     int
	MinScore float64
}

type pipeline struct {
	store     vectorstore.VectorStore
	embedder  embedding.Embedder
	chunker   chunker.Chunker
	retriever *Retriever
	generator *Generator
	cfg       PipelineConfig
}

func NewPipeline(store vectorstore.VectorStore, embedder embedding.Embedder, retriever *Retriever, generator *Generator, cfg PipelineConfig) Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &pipeline{
		store:     store,
		embedder:  embedder,
		chunker:   chunker.New(),
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
	}
}

// Ingest chunks and embeds content, then upserts the chunks. Returns the
// number of chunks stored.
func (p *pipeline) Ingest(ctx context.Context, req IngestRequest) (int, error) {
	opts := req.ChunkOpts
	if opts.ChunkSize == 0 {
		opts = chunker.DefaultOptions()
	}

	textChunks := p.chunker.Chunk(req.Content, opts)
	if len(textChunks) == 0 {
		return 0, fmt.Errorf("no chunks generated from content")
	}

	texts := make([]string, len(textChunks))
	for i, c := range textChunks {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("generate embeddings: %w", err)
	}

	chunks := make([]vectorstore.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = vectorstore.Chunk{
			ID:         uuid.New(),
			DocumentID: req.DocumentID,
			UserID:     req.UserID,
			ChunkIndex: tc.Index,
			Content:    tc.Content,
			Embedding:  embeddings[i],
			TokenCount: tokenizer.CountTokens(tc.Content),
		}
	}

	if err := p.store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	return len(chunks), nil
}

func (p *pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	results, err := p.retrieveFor(ctx, req.UserID, req.Query, req.DocumentIDs, req.TopK, req.MinScore, req.Hybrid)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	if len(results) == 0 {
		return &QueryResponse{Answer: NoContextAnswer, Citations: []Citation{}}, nil
	}

	genResp, err := p.generator.Generate(ctx, GenerateRequest{Query: req.Query, Context: results})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &QueryResponse{
		Answer:    genResp.Answer,
		Citations: genResp.Citations,
		Model:     genResp.Usage.Model,
		Tokens:    genResp.Usage.TotalTokens,
	}, nil
}

func (p *pipeline) Search(ctx context.Context, req SearchRequest) ([]vectorstore.SearchResult, error) {
	return p.retrieveFor(ctx, req.UserID, req.Query, req.DocumentIDs, req.TopK, req.MinScore, req.Hybrid)
}

func (p *pipeline) retrieveFor(ctx context.Context, userID uuid.UUID, query string, docIDs []uuid.UUID, topK int, minScore float64, hybrid bool) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = p.cfg.TopK
	}
	if minScore <= 0 {
		minScore = p.cfg.MinScore
	}

	return p.retriever.Retrieve(ctx, query, RetrieveOptions{
		UserID:      userID,
		DocumentIDs: docIDs,
		TopK:        topK,
		MinScore:    minScore,
		Hybrid:      hybrid,
	})
}
