// Package template manages DOCX templates: upload with variable discovery,
// metadata CRUD, and rendering filled copies into object storage.
package template

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuchat/api/internal/docx"
	"github.com/docuchat/api/internal/models"
	"github.com/docuchat/api/internal/storage"
)

var (
	ErrNotFound    = errors.New("template not found")
	ErrNotDOCX     = errors.New("templates must be .docx files")
	ErrNoVariables = errors.New("no template variables found")
)

// MissingVariablesError reports placeholders the caller did not supply.
type MissingVariablesError struct {
	Missing []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("missing template variables: %s", strings.Join(e.Missing, ", "))
}

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type Service struct {
	db      *pgxpool.Pool
	storage storage.Storage
	bucket  string
}

func NewService(db *pgxpool.Pool, store storage.Storage, bucket string) *Service {
	return &Service{db: db, storage: store, bucket: bucket}
}

type UploadRequest struct {
	UserID      uuid.UUID
	Name        string
	Description string
	Filename    string
	Data        []byte
}

// Upload parses the DOCX for {{variable}} placeholders and stores both the
// file and its metadata.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Template, error) {
	if strings.ToLower(filepath.Ext(req.Filename)) != ".docx" {
		return nil, ErrNotDOCX
	}

	vars, err := docx.ExtractVariables(req.Data)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	}

	tmplID := uuid.New()
	path := fmt.Sprintf("%s/%s/%s", req.UserID, tmplID, req.Filename)

	if err := s.storage.Upload(ctx, s.bucket, path, bytes.NewReader(req.Data), docxContentType); err != nil {
		return nil, fmt.Errorf("upload template: %w", err)
	}

	varsJSON, _ := json.Marshal(vars)

	var tmpl models.Template
	var rawVars []byte
	err = s.db.QueryRow(ctx,
		`INSERT INTO templates (id, user_id, name, description, file_path, variables)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, name, description, file_path, variables, version, created_at, updated_at`,
		tmplID, req.UserID, name, req.Description, path, varsJSON,
	).Scan(&tmpl.ID, &tmpl.UserID, &tmpl.Name, &tmpl.Description, &tmpl.FilePath, &rawVars,
		&tmpl.Version, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	if err := json.Unmarshal(rawVars, &tmpl.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}

	return &tmpl, nil
}

func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Template, error) {
	var tmpl models.Template
	var rawVars []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, description, file_path, variables, version, created_at, updated_at
		 FROM templates WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&tmpl.ID, &tmpl.UserID, &tmpl.Name, &tmpl.Description, &tmpl.FilePath, &rawVars,
		&tmpl.Version, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if err := json.Unmarshal(rawVars, &tmpl.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	return &tmpl, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Template, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, name, description, file_path, variables, version, created_at, updated_at
		 FROM templates WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		var t models.Template
		var rawVars []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.FilePath, &rawVars,
			&t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal(rawVars, &t.Variables); err != nil {
			return nil, fmt.Errorf("decode variables: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tmpl, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if tmpl.FilePath != "" {
		_ = s.storage.Delete(ctx, s.bucket, tmpl.FilePath)
	}

	_, err = s.db.Exec(ctx, "DELETE FROM templates WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

// ProcessResult describes a rendered template stored back into the bucket.
type ProcessResult struct {
	Template   *models.Template  `json:"template"`
	OutputPath string            `json:"output_path"`
	OutputURL  string            `json:"output_url"`
	Values     map[string]string `json:"values"`
}

// Process fills the template with values and stores the rendered document
// under processed/. Every declared variable must be present in values.
func (s *Service) Process(ctx context.Context, userID, id uuid.UUID, values map[string]string) (*ProcessResult, error) {
	tmpl, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if missing := docx.MissingVariables(tmpl.Variables, values); len(missing) > 0 {
		return nil, &MissingVariablesError{Missing: missing}
	}

	data, err := s.storage.DownloadBytes(ctx, s.bucket, tmpl.FilePath)
	if err != nil {
		return nil, fmt.Errorf("download template: %w", err)
	}

	rendered, err := docx.Render(data, values)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	outputPath := fmt.Sprintf("%s/processed/processed_%s_%s.docx",
		userID, sanitizeName(tmpl.Name), time.Now().UTC().Format("20060102T150405"))

	if err := s.storage.Upload(ctx, s.bucket, outputPath, bytes.NewReader(rendered), docxContentType); err != nil {
		return nil, fmt.Errorf("store rendered document: %w", err)
	}

	return &ProcessResult{
		Template:   tmpl,
		OutputPath: outputPath,
		OutputURL:  s.storage.GetPublicURL(s.bucket, outputPath),
		Values:     values,
	}, nil
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
