package extract

import (
	"errors"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	tests := []struct {
		name string
		mime string
	}{
		{"plain", "text/plain"},
		{"markdown", "text/markdown"},
		{"with charset parameter", "text/plain; charset=utf-8"},
		{"mixed case", "Text/Plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract([]byte("chapter three draft"), tt.mime)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got != "chapter three draft" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestExtractEmptyBuffer(t *testing.T) {
	_, err := Extract(nil, "text/plain")
	if !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("err = %v, want ErrEmptyBuffer", err)
	}
}

func TestExtractUnsupportedMime(t *testing.T) {
	_, err := Extract([]byte("PK\x03\x04"), "application/zip")
	if !errors.Is(err, ErrUnsupportedMime) {
		t.Fatalf("err = %v, want ErrUnsupportedMime", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract([]byte("not a pdf at all"), "application/pdf")
	if err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
}
