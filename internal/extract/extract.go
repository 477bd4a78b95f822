// Package extract converts uploaded document bytes into plain text for
// comparison. Extraction failures are fatal for the owning check.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedMime is returned for MIME types no extractor handles.
	ErrUnsupportedMime = errors.New("unsupported mime type")
	// ErrEmptyBuffer is returned when the downloaded object has no bytes.
	ErrEmptyBuffer = errors.New("empty file buffer")
)

// Extract returns the plain text of the document. Supported types:
// application/pdf, text/plain and text/markdown.
func Extract(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyBuffer
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "application/pdf":
		return extractPDF(data)
	case mt == "text/plain" || mt == "text/markdown":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMime, mimeType)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page should not sink the whole document.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
