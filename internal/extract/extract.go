// Package extract provides best-effort text extraction from attachment
// bytes. Formats register as predicate/extractor pairs; adding a format
// means registering a new entry.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor converts one binary format to plain text.
type Extractor struct {
	Name    string
	Match   func(filename, mimeType string) bool
	Extract func(data []byte) (string, error)
}

// registry is consulted in order; the first matching entry wins.
var registry = []Extractor{
	{
		Name: "pdf",
		Match: func(filename, mimeType string) bool {
			return mimeType == "application/pdf" || hasExt(filename, ".pdf")
		},
		Extract: extractPDF,
	},
	{
		Name: "docx",
		Match: func(filename, mimeType string) bool {
			return mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
				hasExt(filename, ".docx")
		},
		Extract: extractDOCX,
	},
	{
		Name: "plaintext",
		Match: func(filename, mimeType string) bool {
			if strings.HasPrefix(mimeType, "text/") {
				return true
			}
			return hasExt(filename, ".txt", ".csv", ".md", ".log")
		},
		Extract: extractPlain,
	},
}

// Text dispatches extraction by filename and MIME type. The second return
// is false when no extractor matches (unsupported types yield empty text);
// an extractor error is returned for counting, and callers degrade to "no
// extracted text" rather than aborting the item.
func Text(filename, mimeType string, data []byte) (string, bool, error) {
	for _, e := range registry {
		if !e.Match(filename, mimeType) {
			continue
		}
		text, err := e.Extract(data)
		if err != nil {
			return "", true, fmt.Errorf("%s extraction: %w", e.Name, err)
		}
		return text, true, nil
	}
	return "", false, nil
}

func hasExt(filename string, exts ...string) bool {
	got := strings.ToLower(filepath.Ext(filename))
	for _, ext := range exts {
		if got == ext {
			return true
		}
	}
	return false
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// extractDOCX concatenates paragraph text from word/document.xml. A .docx
// is a zip of XML parts; <w:t> runs carry the text and </w:p> ends a
// paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("no word/document.xml entry")
	}
	defer doc.Close()

	var b strings.Builder
	dec := xml.NewDecoder(doc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("not valid UTF-8")
	}
	return string(data), nil
}
