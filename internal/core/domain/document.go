package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined out of s.
// Reprocessing a terminal document requires a new pipeline invocation.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type DocumentType string

const (
	TypeISOApplication  DocumentType = "ISO_APPLICATION"
	TypeBankStatement   DocumentType = "BANK_STATEMENT"
	TypeVoidedCheck     DocumentType = "VOIDED_CHECK"
	TypeBusinessLicense DocumentType = "BUSINESS_LICENSE"
	TypeTaxReturn       DocumentType = "TAX_RETURN"
)

// DocumentTypes is the fixed label set, in model output order.
var DocumentTypes = []DocumentType{
	TypeISOApplication,
	TypeBankStatement,
	TypeVoidedCheck,
	TypeBusinessLicense,
	TypeTaxReturn,
}

func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// StageRecord is one append-only entry in a document's processing log.
type StageRecord struct {
	Stage      string            `json:"stage"`
	Outcome    string            `json:"outcome"`
	Message    string            `json:"message,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Document is the identity and lifecycle record for one uploaded file.
// It is mutated only by pipeline stages through the methods below.
type Document struct {
	ID             string                 `json:"id"`
	ApplicationID  string                 `json:"application_id"`
	FileName       string                 `json:"file_name"`
	FileType       string                 `json:"file_type"`
	MimeType       string                 `json:"mime_type"`
	FileSize       int64                  `json:"file_size"`
	StoragePath    string                 `json:"storage_path,omitempty"`
	DocumentType   DocumentType           `json:"document_type,omitempty"`
	Status         DocumentStatus         `json:"processing_status"`
	Classification *ClassificationOutcome `json:"classification_result,omitempty"`
	OCR            *OCRResult             `json:"ocr_result,omitempty"`
	Fields         ExtractedFields        `json:"extracted_fields,omitempty"`
	StageLog       []StageRecord          `json:"stage_log"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	CreatedBy      string                 `json:"created_by"`
	UpdatedBy      string                 `json:"updated_by"`
}

func NewDocument(id, applicationID, fileName, mimeType string, fileSize int64, createdBy string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:            id,
		ApplicationID: applicationID,
		FileName:      fileName,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
		MimeType:      mimeType,
		FileSize:      fileSize,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     createdBy,
		UpdatedBy:     createdBy,
	}
}

// UpdateProcessingStatus advances the lifecycle status and appends rec to the
// stage log. An unknown status is rejected without mutating the document.
func (d *Document) UpdateProcessingStatus(status DocumentStatus, rec StageRecord) error {
	if !status.Valid() {
		return WrapError(ErrValidation, "update processing status", fmt.Errorf("invalid status %q", status))
	}
	d.Status = status
	d.appendStage(rec)
	return nil
}

// SetClassification commits a classification outcome to the document. The
// caller is responsible for the confidence gate; this method only validates
// the label against the fixed type set.
func (d *Document) SetClassification(outcome ClassificationOutcome) error {
	if !outcome.Label.Valid() {
		return WrapError(ErrValidation, "set classification", fmt.Errorf("invalid document type %q", outcome.Label))
	}
	d.DocumentType = outcome.Label
	d.Classification = &outcome
	d.touch()
	return nil
}

// StoreOCRResult attaches a recognition result. An incomplete payload is
// rejected without touching the document.
func (d *Document) StoreOCRResult(result *OCRResult) error {
	if err := result.Validate(); err != nil {
		return WrapError(ErrValidation, "store ocr result", err)
	}
	d.OCR = result
	d.touch()
	return nil
}

func (d *Document) SetExtractedFields(fields ExtractedFields) {
	d.Fields = fields
	d.touch()
}

func (d *Document) appendStage(rec StageRecord) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	d.StageLog = append(d.StageLog, rec)
	d.touch()
}

// touch keeps UpdatedAt monotonically non-decreasing.
func (d *Document) touch() {
	if now := time.Now().UTC(); now.After(d.UpdatedAt) {
		d.UpdatedAt = now
	}
}
