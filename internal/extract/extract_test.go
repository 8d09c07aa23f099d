package extract

import (
	"errors"
	"testing"

	"noteflow/internal/util"
)

func TestExtractPlainText(t *testing.T) {
	text, format, err := Extract("notes.txt", []byte("  hello world \n"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
	if format != "txt" {
		t.Fatalf("unexpected format %q", format)
	}
}

func TestExtractMarkdown(t *testing.T) {
	_, format, err := Extract("README.md", []byte("# Title"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if format != "md" {
		t.Fatalf("unexpected format %q", format)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	if _, _, err := Extract("empty.txt", []byte("   \n\t")); !errors.Is(err, util.ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText got %v", err)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	if _, _, err := Extract("photo.png", []byte{0x89, 0x50}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
