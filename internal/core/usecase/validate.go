package usecase

import (
	"fmt"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// Quality thresholds for recognized text. A document that misses any of them
// is flagged for review, not failed.
const (
	minConfidence     = 99.0
	maxProcessingTime = 300.0
	minTextLength     = 50
	maxErrorRate      = 1.0
)

// QualityMetrics is the measured quality of one recognition result.
type QualityMetrics struct {
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
	TextLength     int     `json:"text_length"`
	ErrorRate      float64 `json:"error_rate"`
}

// ValidateResult checks a recognition result against the quality thresholds
// and reports whether it passes, with the metrics either way.
func ValidateResult(ocr *domain.OCRResult) (bool, QualityMetrics) {
	metrics := QualityMetrics{
		Confidence:     ocr.Confidence,
		ProcessingTime: ocr.ProcessingTime,
		TextLength:     len(ocr.Text),
		ErrorRate:      100 - ocr.Confidence,
	}
	passed := metrics.Confidence >= minConfidence &&
		metrics.ProcessingTime <= maxProcessingTime &&
		metrics.TextLength >= minTextLength &&
		metrics.ErrorRate <= maxErrorRate
	return passed, metrics
}

func (m QualityMetrics) attrs() map[string]string {
	return map[string]string{
		"confidence":      fmt.Sprintf("%.2f", m.Confidence),
		"processing_time": fmt.Sprintf("%.2f", m.ProcessingTime),
		"text_length":     fmt.Sprintf("%d", m.TextLength),
		"error_rate":      fmt.Sprintf("%.2f", m.ErrorRate),
	}
}
