package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrValidation       = errors.New("validation failed")
	ErrExtraction       = errors.New("text extraction failed")
	ErrClassification   = errors.New("classification failed")
	ErrRecognition      = errors.New("recognition failed")
	ErrTimeout          = errors.New("stage timed out")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorKind names the taxonomy bucket of err for stage records.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrExtraction):
		return "ExtractionError"
	case errors.Is(err, ErrClassification):
		return "ClassificationError"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	case errors.Is(err, ErrRecognition):
		return "RecognitionError"
	case errors.Is(err, ErrDocumentNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrTemporary):
		return "TemporaryError"
	default:
		return "InternalError"
	}
}
