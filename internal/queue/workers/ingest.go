// Package workers holds the asynq task handlers run by the worker binary.
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docuchat/api/internal/document"
	"github.com/docuchat/api/internal/metrics"
	"github.com/docuchat/api/internal/models"
	"github.com/docuchat/api/internal/queue"
	"github.com/docuchat/api/internal/rag"
	"github.com/docuchat/api/internal/storage"
	"github.com/docuchat/api/pkg/chunker"
	"github.com/docuchat/api/pkg/textextract"
)

// IngestWorker runs the full ingestion pipeline for one document: download,
// extract, chunk, embed, and store.
type IngestWorker struct {
	docSvc    *document.Service
	storage   storage.Storage
	pipeline  rag.Pipeline
	bucket    string
	chunkOpts chunker.ChunkOptions
}

func NewIngestWorker(docSvc *document.Service, store storage.Storage, pipeline rag.Pipeline, bucket string, chunkOpts chunker.ChunkOptions) *IngestWorker {
	return &IngestWorker{
		docSvc:    docSvc,
		storage:   store,
		pipeline:  pipeline,
		bucket:    bucket,
		chunkOpts: chunkOpts,
	}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("parse user ID: %w", err)
	}

	slog.Info("processing document", "document_id", docID, "user_id", userID)

	if err := w.docSvc.UpdateStatus(ctx, docID, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("update status to processing: %w", err)
	}

	if err := w.ingest(ctx, docID, userID); err != nil {
		if markErr := w.docSvc.MarkFailed(ctx, docID, err.Error()); markErr != nil {
			slog.Error("mark document failed", "document_id", docID, "error", markErr)
		}
		metrics.ObserveDocumentProcessed("failed")
		return fmt.Errorf("ingest document %s: %w", docID, err)
	}

	metrics.ObserveDocumentProcessed("ready")
	slog.Info("document processed", "document_id", docID)
	return nil
}

func (w *IngestWorker) ingest(ctx context.Context, docID, userID uuid.UUID) error {
	doc, err := w.docSvc.GetByID(ctx, userID, docID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	data, err := w.storage.DownloadBytes(ctx, w.bucket, doc.FilePath)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}

	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), doc.FileType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	chunkCount, err := w.pipeline.Ingest(ctx, rag.IngestRequest{
		DocumentID: docID,
		UserID:     userID,
		Content:    extracted.Content,
		ChunkOpts:  w.chunkOpts,
	})
	if err != nil {
		return err
	}

	return w.docSvc.MarkReady(ctx, docID, chunkCount, extracted.Pages)
}
