package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readEntry(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(content)
	}
	t.Fatalf("entry %s not found", name)
	return ""
}

func TestExtractVariables(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:document><w:body>` +
			`<w:p><w:r><w:t>Dear {{name}},</w:t></w:r></w:p>` +
			`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>{{amount}}</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
			`<w:p><w:r><w:t>Regards {{name}}</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	})

	vars, err := ExtractVariables(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "amount"}, vars)
}

func TestExtractVariablesSplitAcrossRuns(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:p><w:r><w:t>{{cli</w:t></w:r><w:r><w:t>ent_name}}</w:t></w:r></w:p>`,
	})

	vars, err := ExtractVariables(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"client_name"}, vars)
}

func TestExtractVariablesMissingDocumentXML(t *testing.T) {
	doc := buildDOCX(t, map[string]string{"word/styles.xml": "<w:styles/>"})

	_, err := ExtractVariables(doc)
	assert.ErrorContains(t, err, "word/document.xml")
}

func TestRenderSubstitutesAndEscapes(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml":   `<w:p><w:r><w:t>Hello {{name}}, total {{total}}</w:t></w:r></w:p>`,
		"[Content_Types].xml": `<Types/>`,
	})

	out, err := Render(doc, map[string]string{
		"name":  "Acme & Sons",
		"total": "<100>",
	})
	require.NoError(t, err)

	rendered := readEntry(t, out, "word/document.xml")
	assert.Contains(t, rendered, "Hello Acme &amp; Sons, total &lt;100&gt;")
	assert.NotContains(t, rendered, "{{")

	// Other archive entries pass through untouched.
	assert.Equal(t, `<Types/>`, readEntry(t, out, "[Content_Types].xml"))
}

func TestRenderMissingVariables(t *testing.T) {
	doc := buildDOCX(t, map[string]string{
		"word/document.xml": `<w:p><w:t>{{first}} {{second}}</w:t></w:p>`,
	})

	_, err := Render(doc, map[string]string{"first": "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
}

func TestMissingVariables(t *testing.T) {
	missing := MissingVariables([]string{"b", "a", "c"}, map[string]string{"c": "x"})
	assert.Equal(t, []string{"a", "b"}, missing)
}
