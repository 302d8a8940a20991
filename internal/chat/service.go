// Package chat exposes the conversational surface: document Q&A over the
// retrieval pipeline, and template filling where the model pulls variable
// values out of the user's message and documents.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/docuchat/api/internal/llm"
	"github.com/docuchat/api/internal/models"
	"github.com/docuchat/api/internal/rag"
	"github.com/docuchat/api/internal/template"
)

type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type templateStore interface {
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Template, error)
	Process(ctx context.Context, userID, id uuid.UUID, values map[string]string) (*template.ProcessResult, error)
}

type Service struct {
	pipeline rag.Pipeline
	tmplSvc  templateStore
	gateway  completer
	model    string
}

func NewService(pipeline rag.Pipeline, tmplSvc templateStore, gw completer, model string) *Service {
	return &Service{pipeline: pipeline, tmplSvc: tmplSvc, gateway: gw, model: model}
}

type QueryRequest struct {
	UserID      uuid.UUID
	Query       string
	DocumentIDs []uuid.UUID
	// ContextWindow caps how many chunks feed the answer. Zero means the
	// configured default.
	ContextWindow int
	Hybrid        bool
}

type QueryResponse struct {
	Answer  string         `json:"answer"`
	Sources []rag.Citation `json:"sources"`
	Model   string         `json:"model,omitempty"`
	Tokens  int            `json:"tokens,omitempty"`
}

// Query answers a question from the user's ingested documents.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	resp, err := s.pipeline.Query(ctx, rag.QueryRequest{
		UserID:      req.UserID,
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		TopK:        req.ContextWindow,
		Hybrid:      req.Hybrid,
	})
	if err != nil {
		return nil, err
	}

	return &QueryResponse{
		Answer:  resp.Answer,
		Sources: resp.Citations,
		Model:   resp.Model,
		Tokens:  resp.Tokens,
	}, nil
}

type TemplateChatRequest struct {
	UserID        uuid.UUID
	TemplateID    uuid.UUID
	Query         string
	ContextWindow int
}

type TemplateChatResponse struct {
	Answer     string            `json:"answer"`
	OutputPath string            `json:"output_path,omitempty"`
	OutputURL  string            `json:"output_url,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

const extractSystemPrompt = `You extract values for document template variables from a user's request and any supporting context.
Respond with a single JSON object mapping each variable name to its value as a string.
Use only information from the request or the context. If a value is absent, omit its key.
Respond with the JSON object only, no explanation.`

// TemplateChat retrieves supporting context, has the model extract variable
// values, then renders and stores a filled copy of the template.
func (s *Service) TemplateChat(ctx context.Context, req TemplateChatRequest) (*TemplateChatResponse, error) {
	tmpl, err := s.tmplSvc.GetByID(ctx, req.UserID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	// Chunks from the user's documents supply values the request itself does
	// not mention. A retrieval error is not fatal, extraction can still work
	// from the request alone. No matching chunks at all means there is
	// nothing to fill the template from.
	var contextText string
	results, err := s.pipeline.Search(ctx, rag.SearchRequest{
		UserID: req.UserID,
		Query:  req.Query,
		TopK:   req.ContextWindow,
	})
	switch {
	case err != nil:
		slog.Warn("template context retrieval failed",
			"template_id", req.TemplateID, "error", err)
	case len(results) == 0:
		return &TemplateChatResponse{Answer: rag.NoContextAnswer}, nil
	default:
		var sb strings.Builder
		for _, r := range results {
			sb.WriteString(r.Content)
			sb.WriteString("\n\n")
		}
		contextText = sb.String()
	}

	values, err := s.extractValues(ctx, tmpl.Variables, req.Query, contextText)
	if err != nil {
		return nil, fmt.Errorf("extract variables: %w", err)
	}

	result, err := s.tmplSvc.Process(ctx, req.UserID, req.TemplateID, values)
	if err != nil {
		return nil, err
	}

	return &TemplateChatResponse{
		Answer:     fmt.Sprintf("I've filled in the %q template and saved the document.", tmpl.Name),
		OutputPath: result.OutputPath,
		OutputURL:  result.OutputURL,
		Values:     result.Values,
	}, nil
}

func (s *Service) extractValues(ctx context.Context, variables []string, query, contextText string) (map[string]string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Variables: %s\n\nRequest:\n%s\n", strings.Join(variables, ", "), query)
	if contextText != "" {
		fmt.Fprintf(&sb, "\nContext:\n%s", contextText)
	}

	resp, err := s.gateway.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	values, err := parseJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("model returned unparseable response: %w", err)
	}

	// Keys the template does not declare are dropped.
	known := make(map[string]bool, len(variables))
	for _, v := range variables {
		known[v] = true
	}
	for k := range values {
		if !known[k] {
			delete(values, k)
		}
	}

	return values, nil
}

// parseJSONObject decodes the model output, salvaging the outermost {...}
// block when the model wraps the JSON in prose or code fences.
func parseJSONObject(content string) (map[string]string, error) {
	raw := make(map[string]interface{})

	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in response")
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
			return nil, err
		}
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			values[k] = t
		case float64:
			values[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			values[k] = strconv.FormatBool(t)
		case nil:
			// Treat explicit nulls as absent.
		default:
			data, _ := json.Marshal(t)
			values[k] = string(data)
		}
	}
	return values, nil
}
