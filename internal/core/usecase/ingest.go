package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dollarfunding/document-service/internal/core/domain"
	"github.com/dollarfunding/document-service/internal/core/ports"
)

const maxFileSizeBytes = 25 << 20

var supportedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/tiff":      {},
	"image/bmp":       {},
}

// IngestDocumentUseCase accepts uploads, stores the bytes, and queues the
// document for asynchronous processing. The caller gets the PENDING document
// back immediately.
type IngestDocumentUseCase struct {
	repo        ports.DocumentRepository
	storage     ports.ObjectStorage
	queue       ports.MessageQueue
	maxFileSize int64
	now         func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxFileSize int64,
) *IngestDocumentUseCase {
	if maxFileSize <= 0 {
		maxFileSize = maxFileSizeBytes
	}
	return &IngestDocumentUseCase{
		repo:        repo,
		storage:     storage,
		queue:       queue,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := storagePath(uc.now().UTC(), id, req.FileName)

	if err := uc.storage.Save(ctx, storageKey, req.Body, req.FileSize, req.MimeType); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := domain.NewDocument(id, req.ApplicationID, req.FileName, req.MimeType, req.FileSize, req.UserID)
	doc.StoragePath = storageKey

	if err := uc.repo.Create(ctx, doc); err != nil {
		uc.discardStored(ctx, storageKey)
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishDocumentQueued(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish processing event: %w", err)
	}

	return doc, nil
}

// discardStored removes an object that no document record references.
// Best effort; a failed delete leaves the object for storage lifecycle rules.
func (uc *IngestDocumentUseCase) discardStored(ctx context.Context, key string) {
	_ = uc.storage.Delete(ctx, key)
}

func (uc *IngestDocumentUseCase) validateRequest(req ports.UploadRequest) error {
	if req.ApplicationID == "" {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("application_id is required"))
	}
	if req.FileName == "" {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("file name is required"))
	}
	if _, ok := supportedMimeTypes[req.MimeType]; !ok {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("unsupported mime type %q", req.MimeType))
	}
	if req.FileSize <= 0 || req.FileSize > uc.maxFileSize {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("file size %d outside (0, %d]", req.FileSize, uc.maxFileSize))
	}
	return nil
}

// storagePath derives the object key: documents/YYYY/MM/DD/<id>-<filename>.
func storagePath(now time.Time, id, filename string) string {
	return fmt.Sprintf("documents/%04d/%02d/%02d/%s-%s",
		now.Year(), now.Month(), now.Day(), id, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
