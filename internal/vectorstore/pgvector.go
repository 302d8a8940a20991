package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		batch.Queue(
			`INSERT INTO document_chunks (id, document_id, user_id, chunk_index, content, embedding, token_count, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET content = $5, embedding = $6, token_count = $7, metadata = $8`,
			id, c.DocumentID, c.UserID, c.ChunkIndex, c.Content,
			pgvector.NewVector(c.Embedding), c.TokenCount, c.Metadata,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert chunk %d: %w", chunks[i].ChunkIndex, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// Thresholds live in the WHERE clause so LIMIT only ever discards rows that
// already passed the score cut.
const similaritySearchSQL = `SELECT c.id, c.document_id, d.filename, c.content, c.chunk_index, c.metadata,
        1 - (c.embedding <=> $1) AS score
 FROM document_chunks c
 JOIN documents d ON d.id = c.document_id
 WHERE c.user_id = $2
   AND (cardinality($3::uuid[]) = 0 OR c.document_id = ANY($3))
   AND ($5 <= 0 OR 1 - (c.embedding <=> $1) >= $5)
 ORDER BY c.embedding <=> $1
 LIMIT $4`

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	embedding := pgvector.NewVector(query)

	rows, err := s.db.Query(ctx, similaritySearchSQL,
		embedding, opts.UserID, idArray(opts.DocumentIDs), opts.TopK, opts.MinScore,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (s *PgVectorStore) HybridSearch(ctx context.Context, query string, queryVec []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	embedding := pgvector.NewVector(queryVec)

	rows, err := s.db.Query(ctx, hybridSearchSQL,
		embedding, opts.UserID, idArray(opts.DocumentIDs), opts.TopK, query, opts.MinScore,
	)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Vector similarity weighted 0.7, keyword ts_rank weighted 0.3. The blended
// score is filtered before LIMIT, same as similaritySearchSQL.
const hybridSearchSQL = `WITH vector_results AS (
	SELECT id, document_id, content, chunk_index, metadata,
	       1 - (embedding <=> $1) AS vector_score
	FROM document_chunks
	WHERE user_id = $2
	  AND (cardinality($3::uuid[]) = 0 OR document_id = ANY($3))
	ORDER BY embedding <=> $1
	LIMIT $4 * 2
),
keyword_results AS (
	SELECT id, document_id, content, chunk_index, metadata,
	       ts_rank(tsv, plainto_tsquery('english', $5)) AS keyword_score
	FROM document_chunks
	WHERE user_id = $2
	  AND (cardinality($3::uuid[]) = 0 OR document_id = ANY($3))
	  AND tsv @@ plainto_tsquery('english', $5)
	LIMIT $4 * 2
),
blended AS (
	SELECT COALESCE(v.id, k.id) AS id,
	       COALESCE(v.document_id, k.document_id) AS document_id,
	       d.filename,
	       COALESCE(v.content, k.content) AS content,
	       COALESCE(v.chunk_index, k.chunk_index) AS chunk_index,
	       COALESCE(v.metadata, k.metadata) AS metadata,
	       (COALESCE(v.vector_score, 0) * 0.7 + COALESCE(k.keyword_score, 0) * 0.3) AS score
	FROM vector_results v
	FULL OUTER JOIN keyword_results k ON v.id = k.id
	JOIN documents d ON d.id = COALESCE(v.document_id, k.document_id)
)
SELECT id, document_id, filename, content, chunk_index, metadata, score
FROM blended
WHERE $6 <= 0 OR score >= $6
ORDER BY score DESC
LIMIT $4`

func (s *PgVectorStore) Delete(ctx context.Context, filter DeleteFilter) error {
	if filter.DocumentID != uuid.Nil {
		_, err := s.db.Exec(ctx,
			"DELETE FROM document_chunks WHERE document_id = $1 AND user_id = $2",
			filter.DocumentID, filter.UserID,
		)
		return err
	}

	_, err := s.db.Exec(ctx, "DELETE FROM document_chunks WHERE user_id = $1", filter.UserID)
	return err
}

func scanResults(rows pgx.Rows) ([]SearchResult, error) {
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Filename, &r.Content, &r.ChunkIndex, &r.Metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// idArray keeps the uuid[] parameter non-nil so cardinality() works.
func idArray(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
