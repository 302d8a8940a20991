package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docuchat/api/internal/auth"
	"github.com/docuchat/api/internal/template"
)

type TemplateHandler struct {
	svc         *template.Service
	maxFileSize int64
}

func NewTemplateHandler(svc *template.Service, maxFileSize int64) *TemplateHandler {
	return &TemplateHandler{svc: svc, maxFileSize: maxFileSize}
}

func (h *TemplateHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	tmpl, err := h.svc.Upload(r.Context(), template.UploadRequest{
		UserID:      auth.UserIDFromContext(r.Context()),
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		Data:        data,
	})
	switch {
	case errors.Is(err, template.ErrNotDOCX), errors.Is(err, template.ErrNoVariables):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "template upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list templates failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates, "count": len(templates)})
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	tmpl, err := h.svc.GetByID(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if errors.Is(err, template.ErrNotFound) {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get template failed")
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

type processRequest struct {
	Values map[string]string `json:"values"`
}

// Process fills the template with explicit values, bypassing the chat flow.
func (h *TemplateHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Process(r.Context(), auth.UserIDFromContext(r.Context()), id, req.Values)

	var missingErr *template.MissingVariablesError
	switch {
	case errors.Is(err, template.ErrNotFound):
		writeError(w, http.StatusNotFound, "template not found")
		return
	case errors.As(err, &missingErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":             missingErr.Error(),
			"missing_variables": missingErr.Missing,
		})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "template processing failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	err = h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if errors.Is(err, template.ErrNotFound) {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
