package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuchat/api/internal/auth"
	"github.com/docuchat/api/internal/document"
	"github.com/docuchat/api/internal/models"
)

type DocumentHandler struct {
	svc         *document.Service
	maxFileSize int64
}

func NewDocumentHandler(svc *document.Service, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxFileSize: maxFileSize}
}

type uploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the maximum upload size")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	doc, err := h.svc.Upload(r.Context(), document.UploadRequest{
		UserID:   auth.UserIDFromContext(r.Context()),
		Filename: header.Filename,
		FileSize: header.Size,
		Data:     file,
	})
	switch {
	case errors.Is(err, document.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, document.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		FileID:   doc.ID.String(),
		Filename: doc.Filename,
		Status:   doc.Status,
	})
}

type statusResponse struct {
	FileID          string `json:"file_id"`
	Filename        string `json:"filename"`
	Status          string `json:"status"`
	ChunksProcessed int    `json:"chunks_processed"`
	TotalChunks     int    `json:"total_chunks"`
	Error           string `json:"error,omitempty"`
}

// Status reports processing progress for one document.
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	resp := statusResponse{
		FileID:   doc.ID.String(),
		Filename: doc.Filename,
		Status:   doc.Status,
	}
	if doc.ErrorMessage != nil {
		resp.Error = *doc.ErrorMessage
	}

	switch doc.Status {
	case models.DocStatusReady:
		resp.TotalChunks = chunkCountFromMetadata(doc.Metadata)
		resp.ChunksProcessed = resp.TotalChunks
	case models.DocStatusProcessing:
		n, err := h.svc.ChunkCount(r.Context(), doc.ID)
		if err == nil {
			resp.ChunksProcessed = n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	docs, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list documents failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	err = h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if errors.Is(err, document.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return nil, false
	}

	doc, err := h.svc.GetByID(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if errors.Is(err, document.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get document failed")
		return nil, false
	}
	return doc, true
}

func chunkCountFromMetadata(metadata json.RawMessage) int {
	if len(metadata) == 0 {
		return 0
	}
	var m struct {
		ChunkCount int `json:"chunk_count"`
	}
	if err := json.Unmarshal(metadata, &m); err != nil {
		return 0
	}
	return m.ChunkCount
}
