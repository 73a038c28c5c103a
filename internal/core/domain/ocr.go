package domain

import (
	"errors"
	"fmt"
	"strings"
)

// OCRMetadata records the engine tuning used to produce a result.
type OCRMetadata struct {
	DPI      int    `json:"dpi"`
	Language string `json:"language"`
	PSM      int    `json:"psm"`
	OEM      int    `json:"oem"`
}

// OCRResult is the aggregated recognition output for a whole document.
// Confidence is a percentage in [0,100]; ProcessingTime is wall-clock seconds.
type OCRResult struct {
	Text           string      `json:"text"`
	Confidence     float64     `json:"confidence"`
	ProcessingTime float64     `json:"processing_time"`
	PagesProcessed int         `json:"pages_processed"`
	Metadata       OCRMetadata `json:"metadata"`
}

// Validate checks the required triple {text, confidence, processing_time}.
func (r *OCRResult) Validate() error {
	if r == nil {
		return errors.New("ocr result is nil")
	}
	if r.Text == "" {
		return errors.New("ocr result missing text")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("ocr result confidence %.2f outside [0,100]", r.Confidence)
	}
	if r.ProcessingTime < 0 {
		return fmt.Errorf("ocr result processing time %.2f is negative", r.ProcessingTime)
	}
	return nil
}

// PageResult is the recognition output for a single page. Confidence is the
// mean of word confidences greater than zero, or 0 when none qualified.
type PageResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// AggregatePages folds page results into document-level text and confidence.
// Text joins non-empty pages with a blank line; confidence is the mean over
// all pages.
func AggregatePages(pages []PageResult) (string, float64) {
	if len(pages) == 0 {
		return "", 0
	}
	texts := make([]string, 0, len(pages))
	var sum float64
	for _, p := range pages {
		sum += p.Confidence
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n"), sum / float64(len(pages))
}

// TextExtraction is the output of the text extraction stage. OCR is non-nil
// only when the recognition path ran, so later stages can reuse it instead of
// recognizing again.
type TextExtraction struct {
	Text string
	OCR  *OCRResult
}

// ExtractedField is a named value pulled from recognized text. Confidence is
// on the OCR percentage scale and never exceeds the base OCR confidence.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type ExtractedFields map[string]ExtractedField
