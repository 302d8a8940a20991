// Package embedding generates embedding vectors for text, batching calls
// and pacing them under the provider's rate limit.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/docuchat/api/internal/llm"
)

// Embedder is what the ingestion and retrieval paths depend on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type gateway interface {
	Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error)
}

type Service struct {
	gateway   gateway
	model     string
	dimension int
	limiter   *rate.Limiter
}

// NewService builds an embedder for the given model. rpm caps outbound
// requests per minute; dimension, when non-zero, is validated against every
// returned vector.
func NewService(gw gateway, model string, dimension, rpm int) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if rpm <= 0 {
		rpm = 60
	}
	return &Service{
		gateway:   gw,
		model:     model,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// The API accepts at most 100 inputs per request.
	const batchSize = 100
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
			Model: s.model,
			Input: texts[i:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d inputs", i/batchSize, len(resp.Embeddings), end-i)
		}

		for _, v := range resp.Embeddings {
			if s.dimension > 0 && len(v) != s.dimension {
				return nil, fmt.Errorf("embedding dimension %d, want %d", len(v), s.dimension)
			}
		}

		allEmbeddings = append(allEmbeddings, resp.Embeddings...)
	}

	return allEmbeddings, nil
}

func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}
