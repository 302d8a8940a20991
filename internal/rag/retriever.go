package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docuchat/api/internal/cache"
	"github.com/docuchat/api/internal/embedding"
	"github.com/docuchat/api/internal/vectorstore"
)

type Retriever struct {
	store      vectorstore.VectorStore
	embedder   embedding.Embedder
	embedCache *cache.EmbeddingCache
}

// NewRetriever builds a retriever. embedCache may be nil, in which case
// every query embeds fresh.
func NewRetriever(store vectorstore.VectorStore, embedder embedding.Embedder, embedCache *cache.EmbeddingCache) *Retriever {
	return &Retriever{store: store, embedder: embedder, embedCache: embedCache}
}

type RetrieveOptions struct {
	UserID      uuid.UUID
	DocumentIDs []uuid.UUID
	TopK        int
	MinScore    float64
	Hybrid      bool
}

func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]vectorstore.SearchResult, error) {
	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchOpts := vectorstore.SearchOptions{
		UserID:      opts.UserID,
		DocumentIDs: opts.DocumentIDs,
		TopK:        opts.TopK,
		MinScore:    opts.MinScore,
	}

	if opts.Hybrid {
		return r.store.HybridSearch(ctx, query, queryVec, searchOpts)
	}
	return r.store.SimilaritySearch(ctx, queryVec, searchOpts)
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.embedCache != nil {
		if vec, ok := r.embedCache.Get(ctx, query); ok {
			return vec, nil
		}
	}

	vec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}

	if r.embedCache != nil {
		// Cache failures do not affect the query path.
		_ = r.embedCache.Set(ctx, query, vec)
	}
	return vec, nil
}
