// Package docx fills {{variable}} placeholders inside DOCX files. A DOCX is
// a zip archive; all paragraph and table text lives in word/document.xml, so
// extraction and substitution rewrite that one entry and copy the rest of
// the archive through untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

const documentEntry = "word/document.xml"

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// ExtractVariables returns the distinct placeholder names found in the
// document, in order of first appearance.
func ExtractVariables(data []byte) ([]string, error) {
	doc, err := readDocumentXML(data)
	if err != nil {
		return nil, err
	}

	doc = normalizePlaceholders(doc)

	seen := make(map[string]bool)
	var vars []string
	for _, m := range varPattern.FindAllStringSubmatch(doc, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	return vars, nil
}

// MissingVariables reports which of the template's variables have no value
// in data, sorted for stable error messages.
func MissingVariables(vars []string, data map[string]string) []string {
	var missing []string
	for _, v := range vars {
		if _, ok := data[v]; !ok {
			missing = append(missing, v)
		}
	}
	sort.Strings(missing)
	return missing
}

// Render substitutes data into every placeholder and returns a new DOCX.
// All variables present in the document must be provided.
func Render(data []byte, values map[string]string) ([]byte, error) {
	vars, err := ExtractVariables(data)
	if err != nil {
		return nil, err
	}
	if missing := MissingVariables(vars, values); len(missing) > 0 {
		return nil, fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	doc, err := readDocumentXML(data)
	if err != nil {
		return nil, err
	}
	doc = normalizePlaceholders(doc)

	doc = varPattern.ReplaceAllStringFunc(doc, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		return escapeXML(values[name])
	})

	return rewriteArchive(data, doc)
}

func readDocumentXML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != documentEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentEntry, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", documentEntry, err)
		}
		return string(content), nil
	}
	return "", fmt.Errorf("invalid DOCX: missing %s", documentEntry)
}

// rewriteArchive copies every zip entry verbatim except word/document.xml,
// which is replaced with doc.
func rewriteArchive(data []byte, doc string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", f.Name, err)
		}

		if f.Name == documentEntry {
			if _, err := w.Write([]byte(doc)); err != nil {
				return nil, fmt.Errorf("write %s: %w", documentEntry, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return nil, fmt.Errorf("copy entry %s: %w", f.Name, err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close DOCX: %w", err)
	}
	return out.Bytes(), nil
}

// normalizePlaceholders collapses placeholders that Word split across runs:
// "{{na</w:t></w:r><w:r><w:t>me}}" becomes "{{name}}". Markup found between
// the braces is dropped; everything outside braces is left as-is.
func normalizePlaceholders(doc string) string {
	var out strings.Builder
	i := 0
	for i < len(doc) {
		start := strings.Index(doc[i:], "{{")
		if start < 0 {
			out.WriteString(doc[i:])
			break
		}
		start += i
		out.WriteString(doc[i:start])

		end := strings.Index(doc[start:], "}}")
		if end < 0 {
			out.WriteString(doc[start:])
			break
		}
		end += start + 2

		inner := doc[start+2 : end-2]
		out.WriteString("{{")
		out.WriteString(stripTags(inner))
		out.WriteString("}}")
		i = end
	}
	return out.String()
}

func stripTags(s string) string {
	var out strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
