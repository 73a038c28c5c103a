// Package extractor obtains raw text for a document: directly from an
// embedded text layer when the format carries one, otherwise through page
// rasterization and recognition.
package extractor

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/dollarfunding/document-service/internal/core/domain"
	"github.com/dollarfunding/document-service/internal/infrastructure/recognition"
)

type Rasterizer interface {
	Rasterize(ctx context.Context, content []byte, mimeType string) ([]image.Image, error)
}

type Preprocessor interface {
	Prepare(img image.Image) *image.Gray
}

type PageRecognizer interface {
	RecognizePage(ctx context.Context, img image.Image) (domain.PageResult, error)
	Options() recognition.Options
}

// Composite routes documents to the embedded-text fast path or the
// recognition path and yields the OCR side artifact when recognition ran.
type Composite struct {
	raster     Rasterizer
	prep       Preprocessor
	recognizer PageRecognizer
	logger     *slog.Logger

	// pdfText is swappable for tests; production uses the embedded reader.
	pdfText func(content []byte) (string, error)
}

func NewComposite(raster Rasterizer, prep Preprocessor, recognizer PageRecognizer, logger *slog.Logger) *Composite {
	return &Composite{
		raster:     raster,
		prep:       prep,
		recognizer: recognizer,
		logger:     logger,
		pdfText:    embeddedText,
	}
}

// Extract returns text for the document. PDFs with a usable text layer skip
// recognition; everything else rasterizes and recognizes. Extract never
// returns empty text successfully.
func (c *Composite) Extract(ctx context.Context, doc *domain.Document, content []byte) (domain.TextExtraction, error) {
	if doc.MimeType == "application/pdf" {
		text, err := c.pdfText(content)
		if err == nil && strings.TrimSpace(text) != "" {
			return domain.TextExtraction{Text: text}, nil
		}
		if err != nil {
			c.logger.Debug("pdf text layer unusable, falling back to recognition",
				"document_id", doc.ID, "error", err)
		}
	}

	result, err := c.Recognize(ctx, doc, content)
	if err != nil {
		return domain.TextExtraction{}, err
	}
	return domain.TextExtraction{Text: result.Text, OCR: result}, nil
}

// Recognize forces the recognition path: rasterize each page, run it through
// preprocessing and the engine, and aggregate the page results.
func (c *Composite) Recognize(ctx context.Context, doc *domain.Document, content []byte) (*domain.OCRResult, error) {
	start := time.Now()

	pages, err := c.raster.Rasterize(ctx, content, doc.MimeType)
	if err != nil {
		return nil, err
	}

	results := make([]domain.PageResult, 0, len(pages))
	for i, page := range pages {
		prepared := c.prep.Prepare(page)
		result, err := c.recognizer.RecognizePage(ctx, prepared)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("page recognized",
			"document_id", doc.ID, "page", i+1, "confidence", result.Confidence)
		results = append(results, result)
	}

	text, confidence := domain.AggregatePages(results)
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrExtraction, "recognize document",
			errNoText{})
	}

	opts := c.recognizer.Options()
	return &domain.OCRResult{
		Text:           text,
		Confidence:     confidence,
		ProcessingTime: time.Since(start).Seconds(),
		PagesProcessed: len(pages),
		Metadata: domain.OCRMetadata{
			DPI:      opts.DPI,
			Language: opts.Language,
			PSM:      opts.PSM,
			OEM:      opts.OEM,
		},
	}, nil
}

type errNoText struct{}

func (errNoText) Error() string { return "no text recognized on any page" }
