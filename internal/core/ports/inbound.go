package ports

import (
	"context"
	"io"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// UploadRequest carries everything the upstream caller supplies.
type UploadRequest struct {
	ApplicationID string
	UserID        string
	FileName      string
	MimeType      string
	FileSize      int64
	Body          io.Reader
}

// DocumentReader is the inbound read model for document metadata/state.
// Callers poll it for status rather than blocking on the pipeline.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
