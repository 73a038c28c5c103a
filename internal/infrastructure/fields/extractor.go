// Package fields pulls structured key/value data out of recognized text with
// per-document-type rule schemas.
package fields

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// Extractor applies a compiled schema to OCR results. Rules that do not match
// are simply absent from the output; only an unknown document type errors.
type Extractor struct {
	schema *Schema
	logger *slog.Logger
}

func NewExtractor(schema *Schema, logger *slog.Logger) *Extractor {
	return &Extractor{schema: schema, logger: logger}
}

// Extract runs every rule for the document type against the recognized text.
// Each field carries a confidence derived from the page-level OCR confidence,
// discounted for value shapes that recognition gets wrong more often.
func (e *Extractor) Extract(docType domain.DocumentType, ocr *domain.OCRResult) (domain.ExtractedFields, error) {
	if ocr == nil {
		return nil, domain.WrapError(domain.ErrValidation, "extract fields",
			fmt.Errorf("no recognition result to extract from"))
	}
	rules, ok := e.schema.Rules(docType)
	if !ok {
		return nil, domain.WrapError(domain.ErrValidation, "extract fields",
			fmt.Errorf("no extraction rules for document type %q", docType))
	}

	extracted := make(domain.ExtractedFields)
	for _, rule := range rules {
		match := rule.re.FindStringSubmatch(ocr.Text)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		extracted[rule.Name] = domain.ExtractedField{
			Value:      value,
			Confidence: fieldConfidence(value, ocr.Confidence),
		}
	}

	e.logger.Info("field extraction completed",
		"document_type", docType, "fields_found", len(extracted))
	return extracted, nil
}

// fieldConfidence discounts the base OCR confidence by multiplicative
// penalties: short values, digits, and special characters each raise the
// chance of a misread. Spaces are not special. Rounded to two decimals.
func fieldConfidence(value string, base float64) float64 {
	confidence := base
	if len(value) < 3 {
		confidence *= 0.9
	}
	if strings.ContainsFunc(value, unicode.IsDigit) {
		confidence *= 0.95
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			confidence *= 0.98
			break
		}
	}
	return math.Round(confidence*100) / 100
}
