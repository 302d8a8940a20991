package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractTXT(t *testing.T) {
	data := []byte("  hello plain text  ")
	out, err := Extract(bytes.NewReader(data), int64(len(data)), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "hello plain text", out.Content)
	assert.Equal(t, "txt", out.Metadata["type"])
}

func TestExtractDOCX(t *testing.T) {
	doc := buildDOCX(t, `<w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>world</w:t></w:r></w:p></w:body></w:document>`)

	out, err := Extract(bytes.NewReader(doc), int64(len(doc)), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out.Content)
	assert.Equal(t, "docx", out.Metadata["type"])
}

func TestExtractDOCXByMIME(t *testing.T) {
	doc := buildDOCX(t, `<w:p><w:t>mime lookup</w:t></w:p>`)

	out, err := Extract(bytes.NewReader(doc), int64(len(doc)),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Equal(t, "mime lookup", out.Content)
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ".docx")
	assert.Error(t, err)
}

func TestExtractUnsupportedType(t *testing.T) {
	data := []byte("data")
	_, err := Extract(bytes.NewReader(data), int64(len(data)), ".exe")
	assert.ErrorContains(t, err, "unsupported file type")
}
