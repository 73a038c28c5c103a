package raster

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRasterizeDecodesPNG(t *testing.T) {
	r := New("", 300)
	content := encodePNG(t, image.NewGray(image.Rect(0, 0, 40, 20)))

	pages, err := r.Rasterize(context.Background(), content, "image/png")
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	if got := pages[0].Bounds(); got.Dx() != 40 || got.Dy() != 20 {
		t.Fatalf("decoded bounds = %v", got)
	}
}

func TestRasterizeRejectsUnsupportedMime(t *testing.T) {
	r := New("", 300)
	_, err := r.Rasterize(context.Background(), []byte("%!PS"), "application/postscript")
	if err == nil || !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestRasterizeRejectsCorruptImage(t *testing.T) {
	r := New("", 300)
	_, err := r.Rasterize(context.Background(), []byte("not an image"), "image/jpeg")
	if err == nil || !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestDefaultsApplied(t *testing.T) {
	r := New("", 0)
	if r.pdftoppm != "pdftoppm" || r.dpi != 300 {
		t.Fatalf("defaults = %q/%d", r.pdftoppm, r.dpi)
	}
}
