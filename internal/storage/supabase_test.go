package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSetsUpsertAndAuth(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "service-key")
	err := s.Upload(context.Background(), "documents", "user/doc/file.pdf",
		strings.NewReader("pdf bytes"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/documents/user/doc/file.pdf", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "pdf bytes", gotBody)
}

func TestUploadSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bucket not found"))
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "service-key")
	err := s.Upload(context.Background(), "missing", "p", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found")
}

func TestDownloadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte("stored content"))
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "service-key")
	data, err := s.DownloadBytes(context.Background(), "documents", "user/doc/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "stored content", string(data))
}

func TestGetPublicURL(t *testing.T) {
	s := NewSupabaseStorage("https://proj.supabase.co", "service-key")

	url := s.GetPublicURL("templates", "user/processed/processed_invoice.docx")
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/templates/user/processed/processed_invoice.docx",
		url)
}
