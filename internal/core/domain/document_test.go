package domain

import (
	"testing"
	"time"
)

func newTestDocument() *Document {
	return NewDocument("doc-1", "app-1", "statement.pdf", "application/pdf", 2048, "user-1")
}

func TestNewDocumentDefaults(t *testing.T) {
	doc := newTestDocument()
	if doc.Status != StatusPending {
		t.Fatalf("new document status = %s, want PENDING", doc.Status)
	}
	if doc.FileType != "pdf" {
		t.Fatalf("file type = %q, want pdf", doc.FileType)
	}
	if doc.DocumentType != "" || doc.Classification != nil {
		t.Fatalf("new document must be unclassified")
	}
	if doc.UpdatedBy != "user-1" {
		t.Fatalf("updated_by = %q", doc.UpdatedBy)
	}
}

func TestUpdateProcessingStatusRejectsUnknownStatus(t *testing.T) {
	doc := newTestDocument()
	before := *doc

	err := doc.UpdateProcessingStatus(DocumentStatus("ARCHIVED"), StageRecord{Stage: "finalize"})
	if err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if !IsKind(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if doc.Status != before.Status || len(doc.StageLog) != 0 || !doc.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("document mutated on rejected transition")
	}
}

func TestUpdateProcessingStatusAppendsStageRecord(t *testing.T) {
	doc := newTestDocument()
	if err := doc.UpdateProcessingStatus(StatusProcessing, StageRecord{Stage: "pipeline", Outcome: "started"}); err != nil {
		t.Fatalf("UpdateProcessingStatus() error = %v", err)
	}
	if err := doc.UpdateProcessingStatus(StatusCompleted, StageRecord{Stage: "pipeline", Outcome: "completed"}); err != nil {
		t.Fatalf("UpdateProcessingStatus() error = %v", err)
	}
	if doc.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", doc.Status)
	}
	if len(doc.StageLog) != 2 {
		t.Fatalf("stage log length = %d, want 2", len(doc.StageLog))
	}
	if doc.StageLog[0].Outcome != "started" || doc.StageLog[1].Outcome != "completed" {
		t.Fatalf("stage log out of order: %+v", doc.StageLog)
	}
	if doc.StageLog[1].RecordedAt.Before(doc.StageLog[0].RecordedAt) {
		t.Fatalf("stage timestamps not monotonic")
	}
}

func TestUpdatedAtNonDecreasing(t *testing.T) {
	doc := newTestDocument()
	prev := doc.UpdatedAt
	for i := 0; i < 5; i++ {
		if err := doc.UpdateProcessingStatus(StatusProcessing, StageRecord{Stage: "pipeline"}); err != nil {
			t.Fatalf("UpdateProcessingStatus() error = %v", err)
		}
		if doc.UpdatedAt.Before(prev) {
			t.Fatalf("updated_at went backwards: %s < %s", doc.UpdatedAt, prev)
		}
		prev = doc.UpdatedAt
		time.Sleep(time.Millisecond)
	}
}

func TestSetClassificationRejectsUnknownType(t *testing.T) {
	doc := newTestDocument()
	err := doc.SetClassification(ClassificationOutcome{Label: "RECEIPT", Confidence: 0.99})
	if err == nil || !IsKind(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if doc.DocumentType != "" || doc.Classification != nil {
		t.Fatalf("document classified despite invalid type")
	}
}

func TestSetClassificationCommitsOutcome(t *testing.T) {
	doc := newTestDocument()
	outcome := ClassificationOutcome{Label: TypeBankStatement, Confidence: 0.91, Method: "machine_learning", ModelVersion: "1.0"}
	if err := doc.SetClassification(outcome); err != nil {
		t.Fatalf("SetClassification() error = %v", err)
	}
	if doc.DocumentType != TypeBankStatement {
		t.Fatalf("document type = %s", doc.DocumentType)
	}
	if doc.Classification == nil || doc.Classification.Confidence != 0.91 {
		t.Fatalf("classification result = %+v", doc.Classification)
	}
}

func TestStoreOCRResultRejectsIncompletePayload(t *testing.T) {
	doc := newTestDocument()
	if err := doc.UpdateProcessingStatus(StatusProcessing, StageRecord{Stage: "pipeline"}); err != nil {
		t.Fatalf("UpdateProcessingStatus() error = %v", err)
	}

	cases := []struct {
		name   string
		result *OCRResult
	}{
		{"nil result", nil},
		{"missing text", &OCRResult{Confidence: 95, ProcessingTime: 1.5}},
		{"confidence out of range", &OCRResult{Text: "abc", Confidence: -5, ProcessingTime: 1.5}},
		{"negative processing time", &OCRResult{Text: "abc", Confidence: 95, ProcessingTime: -1}},
	}
	for _, tc := range cases {
		err := doc.StoreOCRResult(tc.result)
		if err == nil || !IsKind(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
		if doc.OCR != nil {
			t.Fatalf("%s: ocr result stored despite invalid payload", tc.name)
		}
		if doc.Status != StatusProcessing {
			t.Fatalf("%s: status changed to %s", tc.name, doc.Status)
		}
	}
}

func TestStoreOCRResultAcceptsCompletePayload(t *testing.T) {
	doc := newTestDocument()
	result := &OCRResult{Text: "Business Name: Acme Corp", Confidence: 96.5, ProcessingTime: 2.2, PagesProcessed: 1}
	if err := doc.StoreOCRResult(result); err != nil {
		t.Fatalf("StoreOCRResult() error = %v", err)
	}
	if doc.OCR == nil || doc.OCR.Confidence != 96.5 {
		t.Fatalf("ocr result = %+v", doc.OCR)
	}
}

func TestDecideAppliesThreshold(t *testing.T) {
	high := ClassificationOutcome{Label: TypeISOApplication, Confidence: 0.92}
	low := ClassificationOutcome{Label: TypeISOApplication, Confidence: 0.70}
	if high.Decide(0.85) != DecisionClassified {
		t.Fatalf("0.92 should classify at threshold 0.85")
	}
	if low.Decide(0.85) != DecisionLowConfidence {
		t.Fatalf("0.70 should be low confidence at threshold 0.85")
	}
	if boundary := (ClassificationOutcome{Confidence: 0.85}); boundary.Decide(0.85) != DecisionClassified {
		t.Fatalf("threshold is inclusive")
	}
}

func TestAggregatePages(t *testing.T) {
	text, conf := AggregatePages([]PageResult{
		{Text: "page one", Confidence: 80},
		{Text: "", Confidence: 0},
		{Text: "page three", Confidence: 40},
	})
	if text != "page one\n\npage three" {
		t.Fatalf("aggregated text = %q", text)
	}
	if conf != 40 {
		t.Fatalf("aggregated confidence = %.2f, want 40", conf)
	}

	if text, conf := AggregatePages(nil); text != "" || conf != 0 {
		t.Fatalf("empty aggregation = (%q, %.2f)", text, conf)
	}
}

func TestErrorKindNames(t *testing.T) {
	cases := map[string]error{
		"ValidationError":     WrapError(ErrValidation, "op", ErrValidation),
		"ExtractionError":     WrapError(ErrExtraction, "op", ErrExtraction),
		"ClassificationError": WrapError(ErrClassification, "op", ErrClassification),
		"RecognitionError":    WrapError(ErrRecognition, "op", ErrRecognition),
		"TimeoutError":        WrapError(ErrTimeout, "op", ErrTimeout),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("COMPLETED and FAILED must be terminal")
	}
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatalf("PENDING and PROCESSING must not be terminal")
	}
}
