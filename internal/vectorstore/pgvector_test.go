package vectorstore

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The similarity threshold must be part of the WHERE clause. Filtering after
// LIMIT can return fewer than TopK rows even when more qualifying rows exist.
func TestSearchSQLFiltersScoreBeforeLimit(t *testing.T) {
	simFilter := strings.Index(similaritySearchSQL, "1 - (c.embedding <=> $1) >= $5")
	simLimit := strings.LastIndex(similaritySearchSQL, "LIMIT")
	require.Greater(t, simFilter, 0)
	assert.Less(t, simFilter, simLimit)

	hybFilter := strings.Index(hybridSearchSQL, "score >= $6")
	hybLimit := strings.LastIndex(hybridSearchSQL, "LIMIT $4")
	require.Greater(t, hybFilter, 0)
	assert.Less(t, hybFilter, hybLimit)
}

func TestIDArrayNeverNil(t *testing.T) {
	assert.NotNil(t, idArray(nil))
	assert.Empty(t, idArray(nil))

	ids := []uuid.UUID{uuid.New()}
	assert.Equal(t, ids, idArray(ids))
}
