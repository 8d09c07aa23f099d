// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"noteflow/internal/util"
)

// Extract returns the sanitized plain text of an uploaded document and
// the detected format. PDF, plain text and markdown are supported.
// Returns util.ErrNoExtractableText when the document yields no text.
func Extract(name string, data []byte) (text, format string, err error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		text, err = pdfText(data)
		if err != nil {
			return "", "", err
		}
		format = "pdf"
	case ".md", ".markdown":
		text = string(data)
		format = "md"
	case ".txt", "":
		text = string(data)
		format = "txt"
	default:
		return "", "", fmt.Errorf("unsupported document format %q", ext)
	}

	text = util.SanitizeText(strings.TrimSpace(text))
	if text == "" {
		return "", "", util.ErrNoExtractableText
	}
	return text, format, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}
