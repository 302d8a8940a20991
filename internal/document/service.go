// Package document owns the document lifecycle: upload into object storage,
// metadata rows in Postgres, and status transitions driven by the ingest
// worker.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuchat/api/internal/models"
	"github.com/docuchat/api/internal/queue"
	"github.com/docuchat/api/internal/storage"
	"github.com/docuchat/api/pkg/textextract"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

type Service struct {
	db          *pgxpool.Pool
	storage     storage.Storage
	queueClient *queue.Client
	bucket      string
	maxFileSize int64
}

func NewService(db *pgxpool.Pool, store storage.Storage, qc *queue.Client, bucket string, maxFileSize int64) *Service {
	return &Service{
		db:          db,
		storage:     store,
		queueClient: qc,
		bucket:      bucket,
		maxFileSize: maxFileSize,
	}
}

type UploadRequest struct {
	UserID   uuid.UUID
	Filename string
	FileSize int64
	Data     io.Reader
}

// Upload validates the file, stores it, records a pending document row, and
// queues it for ingestion.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !supportedExt(ext) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedType, ext, strings.Join(textextract.SupportedTypes(), ", "))
	}
	if s.maxFileSize > 0 && req.FileSize > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, req.FileSize, s.maxFileSize)
	}

	docID := uuid.New()
	path := fmt.Sprintf("%s/%s/%s", req.UserID, docID, req.Filename)

	if err := s.storage.Upload(ctx, s.bucket, path, req.Data, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// The row is inserted already queued. Enqueueing first races a fast
	// worker, whose "processing" update would be overwritten here.
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, user_id, filename, file_path, file_type, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, user_id, filename, file_path, file_type, file_size_bytes, status, error_message, metadata, created_at, updated_at`,
		docID, req.UserID, req.Filename, path, ext, req.FileSize, models.DocStatusQueued,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.FilePath, &doc.FileType, &doc.FileSizeBytes,
		&doc.Status, &doc.ErrorMessage, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := s.queueClient.EnqueueDocumentProcess(queue.DocumentProcessPayload{
		DocumentID: docID.String(),
		UserID:     req.UserID.String(),
	}); err != nil {
		_ = s.MarkFailed(ctx, docID, "failed to queue for processing")
		return nil, fmt.Errorf("enqueue processing: %w", err)
	}

	return &doc, nil
}

func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, filename, file_path, file_type, file_size_bytes, status, error_message, metadata, created_at, updated_at
		 FROM documents WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.FilePath, &doc.FileType, &doc.FileSizeBytes,
		&doc.Status, &doc.ErrorMessage, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, filename, file_path, file_type, file_size_bytes, status, error_message, metadata, created_at, updated_at
		 FROM documents WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.FilePath, &d.FileType, &d.FileSizeBytes,
			&d.Status, &d.ErrorMessage, &d.Metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document row, its chunks (via FK cascade), and the
// stored file.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if doc.FilePath != "" {
		// Best effort; an orphaned object is preferable to a stuck delete.
		_ = s.storage.Delete(ctx, s.bucket, doc.FilePath)
	}

	_, err = s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE documents SET status = $1, updated_at = now() WHERE id = $2", status, id)
	return err
}

// MarkReady records the final chunk count and flips the document to ready.
func (s *Service) MarkReady(ctx context.Context, id uuid.UUID, chunkCount, pages int) error {
	metadata, _ := json.Marshal(map[string]interface{}{
		"chunk_count": chunkCount,
		"pages":       pages,
	})
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $1, metadata = $2, error_message = NULL, updated_at = now() WHERE id = $3`,
		models.DocStatusReady, metadata, id)
	return err
}

// MarkFailed records the failure reason alongside the failed status.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`,
		models.DocStatusFailed, reason, id)
	return err
}

// ChunkCount reports stored chunks, used for progress reporting while a
// document is processing.
func (s *Service) ChunkCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM document_chunks WHERE document_id = $1", id).Scan(&n)
	return n, err
}

func supportedExt(ext string) bool {
	for _, t := range textextract.SupportedTypes() {
		if ext == t {
			return true
		}
	}
	return false
}
