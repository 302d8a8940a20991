package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/api/internal/document"
)

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTokenMissingCredentials(t *testing.T) {
	h := NewAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "username and password required")
}

func TestRegisterShortPassword(t *testing.T) {
	h := NewAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"username":"alice","password":"short"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 8 characters")
}

func TestQueryRejectsEmptyMessage(t *testing.T) {
	h := NewChatHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/query", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	h.Query(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query required")
}

func TestQueryRejectsBadDocumentID(t *testing.T) {
	h := NewChatHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/query",
		strings.NewReader(`{"query":"hi","document_ids":["not-a-uuid"]}`))
	rec := httptest.NewRecorder()
	h.Query(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid document ID")
}

func TestTemplateChatRequiresTemplateID(t *testing.T) {
	h := NewChatHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/template",
		strings.NewReader(`{"query":"fill it in"}`))
	rec := httptest.NewRecorder()
	h.TemplateChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "template_id required")
}

func TestTemplateChatRejectsBadJSON(t *testing.T) {
	h := NewChatHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/template", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.TemplateChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	h := NewDocumentHandler(nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/files/upload", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartFile(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc := document.NewService(nil, nil, nil, "documents", 1<<20)
	h := NewDocumentHandler(svc, 1<<20)

	body, contentType := multipartFile(t, "payload.exe", []byte("MZ binary"))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	// Size cap enforced by the service; the body itself stays under the
	// handler's reader cap.
	svc := document.NewService(nil, nil, nil, "documents", 16)
	h := NewDocumentHandler(svc, 1<<20)

	body, contentType := multipartFile(t, "big.pdf", bytes.Repeat([]byte("a"), 64))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "file too large")
}

func TestUploadBodyOverReaderCapReturns413(t *testing.T) {
	h := NewDocumentHandler(nil, 16)

	body, contentType := multipartFile(t, "big.pdf", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum upload size")
}
