package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const embeddingTTL = 24 * time.Hour

// EmbeddingCache memoizes query embeddings so repeated questions skip the
// embedding API. Keys hash the text so arbitrary queries stay within redis
// key length limits.
type EmbeddingCache struct {
	cache *Cache
	model string
}

func NewEmbeddingCache(c *Cache, model string) *EmbeddingCache {
	return &EmbeddingCache{cache: c, model: model}
}

func (e *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	var vec []float32
	if err := e.cache.Get(ctx, e.key(text), &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (e *EmbeddingCache) Set(ctx context.Context, text string, vec []float32) error {
	return e.cache.Set(ctx, e.key(text), vec, embeddingTTL)
}

func (e *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", e.model, hex.EncodeToString(sum[:]))
}
