package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Gateway runs completion and embedding calls against a primary provider,
// retrying with quadratic backoff and falling back to a secondary provider
// when the primary is exhausted.
type Gateway struct {
	primary    Provider
	fallback   Provider
	maxRetries int
}

func NewGateway(primary, fallback Provider, maxRetries int) *Gateway {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Gateway{primary: primary, fallback: fallback, maxRetries: maxRetries}
}

func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := g.completeWithRetry(ctx, g.primary, req)
	if err != nil && g.fallback != nil {
		slog.Warn("primary provider failed, trying fallback",
			"primary", g.primary.Name(),
			"fallback", g.fallback.Name(),
			"error", err,
		)
		return g.completeWithRetry(ctx, g.fallback, req)
	}
	return resp, err
}

// Embed always runs on the primary provider; embedding vectors from
// different providers are not comparable.
func (g *Gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		resp, err := g.primary.Embed(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding retries exhausted for %s: %w", g.primary.Name(), lastErr)
}

func (g *Gateway) completeWithRetry(ctx context.Context, p Provider, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
			slog.Debug("retrying LLM call", "provider", p.Name(), "attempt", attempt)
		}

		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", p.Name(), lastErr)
}

func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt*attempt) * 500 * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
