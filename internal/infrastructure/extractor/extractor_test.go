package extractor

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/dollarfunding/document-service/internal/core/domain"
	"github.com/dollarfunding/document-service/internal/infrastructure/recognition"
)

type rasterFake struct {
	pages []image.Image
	err   error
}

func (f *rasterFake) Rasterize(_ context.Context, _ []byte, _ string) ([]image.Image, error) {
	return f.pages, f.err
}

type prepFake struct{ calls int }

func (f *prepFake) Prepare(img image.Image) *image.Gray {
	f.calls++
	b := img.Bounds()
	return image.NewGray(b)
}

type recognizerFake struct {
	results []domain.PageResult
	err     error
	next    int
}

func (f *recognizerFake) RecognizePage(_ context.Context, _ image.Image) (domain.PageResult, error) {
	if f.err != nil {
		return domain.PageResult{}, f.err
	}
	r := f.results[f.next]
	f.next++
	return r, nil
}

func (f *recognizerFake) Options() recognition.Options {
	return recognition.Options{Language: "eng", PSM: 3, OEM: 3, DPI: 300}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPages(n int) []image.Image {
	pages := make([]image.Image, n)
	for i := range pages {
		pages[i] = image.NewGray(image.Rect(0, 0, 4, 4))
	}
	return pages
}

func newTestComposite(raster Rasterizer, prep Preprocessor, rec PageRecognizer) *Composite {
	return NewComposite(raster, prep, rec, testLogger())
}

func TestRecognizeAggregatesPages(t *testing.T) {
	prep := &prepFake{}
	rec := &recognizerFake{results: []domain.PageResult{
		{Text: "first page", Confidence: 90},
		{Text: "second page", Confidence: 70},
	}}
	c := newTestComposite(&rasterFake{pages: testPages(2)}, prep, rec)

	doc := domain.NewDocument("doc-1", "app-1", "scan.png", "image/png", 100, "tester")
	result, err := c.Recognize(context.Background(), doc, []byte("img"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "first page\n\nsecond page" {
		t.Fatalf("text = %q", result.Text)
	}
	if result.Confidence != 80 {
		t.Fatalf("confidence = %v, want 80", result.Confidence)
	}
	if result.PagesProcessed != 2 {
		t.Fatalf("pages = %d", result.PagesProcessed)
	}
	if result.ProcessingTime < 0 {
		t.Fatalf("processing time = %v", result.ProcessingTime)
	}
	if result.Metadata.Language != "eng" || result.Metadata.DPI != 300 {
		t.Fatalf("metadata = %+v", result.Metadata)
	}
	if prep.calls != 2 {
		t.Fatalf("preprocessor calls = %d", prep.calls)
	}
}

func TestRecognizeEmptyPagesFails(t *testing.T) {
	rec := &recognizerFake{results: []domain.PageResult{
		{Text: "", Confidence: 0},
	}}
	c := newTestComposite(&rasterFake{pages: testPages(1)}, &prepFake{}, rec)

	doc := domain.NewDocument("doc-1", "app-1", "blank.png", "image/png", 10, "tester")
	_, err := c.Recognize(context.Background(), doc, []byte("img"))
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("err = %v, want extraction kind", err)
	}
}

func TestRecognizePropagatesRasterError(t *testing.T) {
	boom := domain.WrapError(domain.ErrExtraction, "rasterize", errors.New("bad file"))
	c := newTestComposite(&rasterFake{err: boom}, &prepFake{}, &recognizerFake{})

	doc := domain.NewDocument("doc-1", "app-1", "bad.pdf", "application/pdf", 10, "tester")
	_, err := c.Recognize(context.Background(), doc, []byte("pdf"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want raster error", err)
	}
}

func TestRecognizePropagatesEngineError(t *testing.T) {
	boom := domain.WrapError(domain.ErrRecognition, "recognize page", errors.New("engine down"))
	c := newTestComposite(&rasterFake{pages: testPages(1)}, &prepFake{}, &recognizerFake{err: boom})

	doc := domain.NewDocument("doc-1", "app-1", "scan.png", "image/png", 10, "tester")
	_, err := c.Recognize(context.Background(), doc, []byte("img"))
	if !domain.IsKind(err, domain.ErrRecognition) {
		t.Fatalf("err = %v, want recognition kind", err)
	}
}

func TestExtractUsesEmbeddedTextForPDF(t *testing.T) {
	c := newTestComposite(&rasterFake{err: errors.New("should not rasterize")}, &prepFake{}, &recognizerFake{})
	c.pdfText = func(_ []byte) (string, error) { return "embedded layer text", nil }

	doc := domain.NewDocument("doc-1", "app-1", "form.pdf", "application/pdf", 10, "tester")
	ext, err := c.Extract(context.Background(), doc, []byte("pdf"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ext.Text != "embedded layer text" {
		t.Fatalf("text = %q", ext.Text)
	}
	if ext.OCR != nil {
		t.Fatal("embedded path should not produce an OCR artifact")
	}
}

func TestExtractFallsBackToRecognitionForScannedPDF(t *testing.T) {
	rec := &recognizerFake{results: []domain.PageResult{
		{Text: "scanned text", Confidence: 88},
	}}
	c := newTestComposite(&rasterFake{pages: testPages(1)}, &prepFake{}, rec)
	c.pdfText = func(_ []byte) (string, error) { return "", errors.New("no text layer") }

	doc := domain.NewDocument("doc-1", "app-1", "scan.pdf", "application/pdf", 10, "tester")
	ext, err := c.Extract(context.Background(), doc, []byte("pdf"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ext.Text != "scanned text" {
		t.Fatalf("text = %q", ext.Text)
	}
	if ext.OCR == nil || ext.OCR.Confidence != 88 {
		t.Fatalf("ocr = %+v", ext.OCR)
	}
}

func TestExtractBlankTextLayerFallsBack(t *testing.T) {
	rec := &recognizerFake{results: []domain.PageResult{
		{Text: "recognized", Confidence: 75},
	}}
	c := newTestComposite(&rasterFake{pages: testPages(1)}, &prepFake{}, rec)
	c.pdfText = func(_ []byte) (string, error) { return "   \n\t ", nil }

	doc := domain.NewDocument("doc-1", "app-1", "scan.pdf", "application/pdf", 10, "tester")
	ext, err := c.Extract(context.Background(), doc, []byte("pdf"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ext.Text != "recognized" {
		t.Fatalf("text = %q", ext.Text)
	}
}

func TestExtractImageGoesStraightToRecognition(t *testing.T) {
	rec := &recognizerFake{results: []domain.PageResult{
		{Text: "image text", Confidence: 92},
	}}
	c := newTestComposite(&rasterFake{pages: testPages(1)}, &prepFake{}, rec)
	c.pdfText = func(_ []byte) (string, error) {
		t.Fatal("pdf text layer consulted for an image")
		return "", nil
	}

	doc := domain.NewDocument("doc-1", "app-1", "check.jpg", "image/jpeg", 10, "tester")
	ext, err := c.Extract(context.Background(), doc, []byte("img"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ext.Text != "image text" || ext.OCR == nil {
		t.Fatalf("ext = %+v", ext)
	}
}
