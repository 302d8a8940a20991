package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docuchat/api/internal/auth"
	"github.com/docuchat/api/internal/chat"
	"github.com/docuchat/api/internal/template"
)

type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type queryRequest struct {
	Query         string   `json:"query"`
	ContextWindow int      `json:"context_window,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
	Hybrid        bool     `json:"hybrid,omitempty"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	docIDs, err := parseUUIDs(req.DocumentIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	resp, err := h.svc.Query(r.Context(), chat.QueryRequest{
		UserID:        auth.UserIDFromContext(r.Context()),
		Query:         req.Query,
		DocumentIDs:   docIDs,
		ContextWindow: req.ContextWindow,
		Hybrid:        req.Hybrid,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type templateChatRequest struct {
	Query         string `json:"query"`
	TemplateID    string `json:"template_id"`
	ContextWindow int    `json:"context_window,omitempty"`
}

func (h *ChatHandler) TemplateChat(w http.ResponseWriter, r *http.Request) {
	var req templateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "template_id required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	tmplID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template_id")
		return
	}

	resp, err := h.svc.TemplateChat(r.Context(), chat.TemplateChatRequest{
		UserID:        auth.UserIDFromContext(r.Context()),
		TemplateID:    tmplID,
		Query:         req.Query,
		ContextWindow: req.ContextWindow,
	})

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
		writeError(w, http.StatusInternalServerError, "template chat failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
