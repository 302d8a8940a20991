package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuchat/api/internal/llm"
	"github.com/docuchat/api/internal/vectorstore"
)

type completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Generator struct {
	gateway completer
	model   string
}

func NewGenerator(gw completer, model string) *Generator {
	return &Generator{gateway: gw, model: model}
}

type GenerateRequest struct {
	Query   string
	Context []vectorstore.SearchResult
}

type GenerateResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Usage     llm.CompletionResponse
}

type Citation struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

const answerSystemPrompt = `You are a helpful AI assistant. Answer the user's question based on the provided context.
If the context doesn't contain enough information, say so. Always cite which sources you used.
Format citations as [Source N] where N corresponds to the context chunk number.`

func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := []llm.Message{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(req.Context), req.Query)},
	}

	resp, err := g.gateway.Complete(ctx, llm.CompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	citations := make([]Citation, len(req.Context))
	for i, c := range req.Context {
		citations[i] = Citation{
			DocumentID: c.DocumentID.String(),
			ChunkID:    c.ChunkID.String(),
			Filename:   c.Filename,
			Content:    truncate(c.Content, 200),
			Score:      c.Score,
		}
	}

	return &GenerateResponse{
		Answer:    resp.Content,
		Citations: citations,
		Usage:     *resp,
	}, nil
}

func buildContext(results []vectorstore.SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[Source %d] %s (score: %.3f)\n%s\n\n", i+1, r.Filename, r.Score, r.Content)
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
