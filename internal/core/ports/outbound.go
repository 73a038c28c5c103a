package ports

import (
	"context"
	"io"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, rec domain.StageRecord) error
	SaveClassification(ctx context.Context, id string, outcome domain.ClassificationOutcome) error
	SaveProcessingResult(ctx context.Context, id string, ocr *domain.OCRResult, fields domain.ExtractedFields) error
}

// ObjectStorage stores source documents. Documents carry only the storage
// key, never raw bytes; encryption configuration belongs to the adapter.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue hands pending documents to pipeline workers.
type MessageQueue interface {
	PublishDocumentQueued(ctx context.Context, documentID string) error
	SubscribeDocumentQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor obtains raw text for a stored document. Extract prefers the
// embedded text layer and falls back to recognition; Recognize forces the
// recognition path. Both attach the OCR side artifact when recognition ran.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document, content []byte) (domain.TextExtraction, error)
	Recognize(ctx context.Context, doc *domain.Document, content []byte) (*domain.OCRResult, error)
}

// DocumentClassifier runs pretrained inference over extracted text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.ClassificationOutcome, error)
}

// FieldExtractor applies the per-type schema of extraction rules to
// recognized text.
type FieldExtractor interface {
	Extract(docType domain.DocumentType, ocr *domain.OCRResult) (domain.ExtractedFields, error)
}
