package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dollarfunding/document-service/internal/core/domain"
	"github.com/dollarfunding/document-service/internal/core/ports"
)

// DefaultConfidenceThreshold is the minimum classification probability at
// which a label is committed to the document.
const DefaultConfidenceThreshold = 0.85

// ProcessDocumentUseCase runs the processing pipeline for one queued
// document: extract, classify, extract fields, validate quality. Stages run
// strictly in order; the first error marks the document FAILED.
type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	fields     ports.FieldExtractor
	threshold  float64
	now        func() time.Time
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	fields ports.FieldExtractor,
	threshold float64,
) *ProcessDocumentUseCase {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		storage:    storage,
		extractor:  extractor,
		classifier: classifier,
		fields:     fields,
		threshold:  threshold,
		now:        time.Now,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	start := uc.now()

	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing,
		uc.record("pipeline", "started", "", nil)); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.runPipeline(ctx, documentID, start); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string, start time.Time) error {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}

	content, err := uc.loadContent(ctx, doc)
	if err != nil {
		return err
	}

	extraction, err := uc.extract(ctx, doc, content)
	if err != nil {
		return err
	}

	outcome, err := uc.classify(ctx, extraction.Text)
	if err != nil {
		return err
	}

	if outcome.Decide(uc.threshold) == domain.DecisionLowConfidence {
		return uc.completeLowConfidence(ctx, documentID, outcome, start)
	}

	if err := uc.repo.SaveClassification(ctx, documentID, outcome); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}

	ocr, err := uc.ensureRecognition(ctx, doc, content, extraction)
	if err != nil {
		return err
	}

	extracted, err := uc.fields.Extract(outcome.Label, ocr)
	if err != nil {
		return fmt.Errorf("extract fields: %w", err)
	}

	if err := uc.repo.SaveProcessingResult(ctx, documentID, ocr, extracted); err != nil {
		return fmt.Errorf("save processing result: %w", err)
	}

	passed, metrics := ValidateResult(ocr)
	qualityOutcome := "passed"
	if !passed {
		qualityOutcome = "flagged"
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing,
		uc.record("quality", qualityOutcome, "", metrics.attrs())); err != nil {
		return fmt.Errorf("record quality check: %w", err)
	}

	return uc.markStatus(ctx, documentID, domain.StatusCompleted,
		uc.record("pipeline", "completed", "", map[string]string{
			"document_type":   string(outcome.Label),
			"confidence":      fmt.Sprintf("%.4f", outcome.Confidence),
			"fields_found":    fmt.Sprintf("%d", len(extracted)),
			"processing_time": fmt.Sprintf("%.2f", uc.now().Sub(start).Seconds()),
		}))
}

// completeLowConfidence finishes a document whose classification stayed below
// the threshold. No type is committed; the stage log routes it to review.
func (uc *ProcessDocumentUseCase) completeLowConfidence(
	ctx context.Context,
	documentID string,
	outcome domain.ClassificationOutcome,
	start time.Time,
) error {
	return uc.markStatus(ctx, documentID, domain.StatusCompleted,
		uc.record("classification", "low_confidence", "manual review required", map[string]string{
			"candidate_type":  string(outcome.Label),
			"confidence":      fmt.Sprintf("%.4f", outcome.Confidence),
			"threshold":       fmt.Sprintf("%.2f", uc.threshold),
			"processing_time": fmt.Sprintf("%.2f", uc.now().Sub(start).Seconds()),
		}))
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) loadContent(ctx context.Context, doc *domain.Document) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	return content, nil
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc *domain.Document, content []byte) (domain.TextExtraction, error) {
	extraction, err := uc.extractor.Extract(ctx, doc, content)
	if err != nil {
		return domain.TextExtraction{}, fmt.Errorf("extract text: %w", err)
	}
	return extraction, nil
}

func (uc *ProcessDocumentUseCase) classify(ctx context.Context, text string) (domain.ClassificationOutcome, error) {
	outcome, err := uc.classifier.Classify(ctx, text)
	if err != nil {
		return domain.ClassificationOutcome{}, fmt.Errorf("classify document: %w", err)
	}
	return outcome, nil
}

// ensureRecognition returns the OCR artifact for field extraction, running
// recognition when the embedded text path skipped it.
func (uc *ProcessDocumentUseCase) ensureRecognition(
	ctx context.Context,
	doc *domain.Document,
	content []byte,
	extraction domain.TextExtraction,
) (*domain.OCRResult, error) {
	if extraction.OCR != nil {
		return extraction.OCR, nil
	}
	ocr, err := uc.extractor.Recognize(ctx, doc, content)
	if err != nil {
		return nil, fmt.Errorf("recognize document: %w", err)
	}
	return ocr, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, rec domain.StageRecord) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, rec)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed,
		uc.record("pipeline", "failed", processErr.Error(), map[string]string{
			"error_kind": domain.ErrorKind(processErr),
		}))
}

func (uc *ProcessDocumentUseCase) record(stage, outcome, message string, attrs map[string]string) domain.StageRecord {
	return domain.StageRecord{
		Stage:      stage,
		Outcome:    outcome,
		Message:    message,
		Attrs:      attrs,
		RecordedAt: uc.now().UTC(),
	}
}
