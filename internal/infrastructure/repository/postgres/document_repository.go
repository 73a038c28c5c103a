package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026021001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	application_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	storage_path TEXT NOT NULL,
	document_type TEXT,
	status TEXT NOT NULL,
	classification JSONB,
	ocr_result JSONB,
	extracted_fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	stage_log JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	created_by TEXT NOT NULL,
	updated_by TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_application_id ON documents(application_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	stageLog, err := json.Marshal(doc.StageLog)
	if err != nil {
		return fmt.Errorf("marshal stage log: %w", err)
	}
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, application_id, file_name, file_type, mime_type, file_size, storage_path,
	document_type, status, extracted_fields, stage_log,
	created_at, updated_at, created_by, updated_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.ApplicationID, doc.FileName, doc.FileType, doc.MimeType, doc.FileSize,
		doc.StoragePath, nullableType(doc.DocumentType), string(doc.Status), fields, stageLog,
		doc.CreatedAt, doc.UpdatedAt, doc.CreatedBy, doc.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, application_id, file_name, file_type, mime_type, file_size, storage_path,
	document_type, status, classification, ocr_result, extracted_fields, stage_log,
	created_at, updated_at, created_by, updated_by
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var docType sql.NullString
	var status string
	var clsRaw, ocrRaw, fieldsRaw, stageRaw []byte

	err := row.Scan(
		&doc.ID, &doc.ApplicationID, &doc.FileName, &doc.FileType, &doc.MimeType, &doc.FileSize,
		&doc.StoragePath, &docType, &status, &clsRaw, &ocrRaw, &fieldsRaw, &stageRaw,
		&doc.CreatedAt, &doc.UpdatedAt, &doc.CreatedBy, &doc.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if docType.Valid {
		doc.DocumentType = domain.DocumentType(docType.String)
	}
	doc.Status = domain.DocumentStatus(status)
	if len(clsRaw) > 0 {
		if err := json.Unmarshal(clsRaw, &doc.Classification); err != nil {
			return nil, fmt.Errorf("unmarshal classification: %w", err)
		}
	}
	if len(ocrRaw) > 0 {
		if err := json.Unmarshal(ocrRaw, &doc.OCR); err != nil {
			return nil, fmt.Errorf("unmarshal ocr result: %w", err)
		}
	}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &doc.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal extracted fields: %w", err)
		}
	}
	if len(stageRaw) > 0 {
		if err := json.Unmarshal(stageRaw, &doc.StageLog); err != nil {
			return nil, fmt.Errorf("unmarshal stage log: %w", err)
		}
	}
	return &doc, nil
}

// UpdateStatus sets the lifecycle status and appends rec to the stage log in
// one statement.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, rec domain.StageRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal stage record: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, stage_log = stage_log || $3::jsonb, updated_at = $4
WHERE id = $1
`, id, string(status), recJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return checkAffected(res, id)
}

func (r *DocumentRepository) SaveClassification(ctx context.Context, id string, outcome domain.ClassificationOutcome) error {
	clsJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET document_type = $2, classification = $3, updated_at = $4
WHERE id = $1
`, id, string(outcome.Label), clsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return checkAffected(res, id)
}

func (r *DocumentRepository) SaveProcessingResult(ctx context.Context, id string, ocr *domain.OCRResult, fields domain.ExtractedFields) error {
	ocrJSON, err := json.Marshal(ocr)
	if err != nil {
		return fmt.Errorf("marshal ocr result: %w", err)
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET ocr_result = $2, extracted_fields = $3, updated_at = $4
WHERE id = $1
`, id, ocrJSON, fieldsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save processing result: %w", err)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id %s", id))
	}
	return nil
}

func nullableType(t domain.DocumentType) any {
	if t == "" {
		return nil
	}
	return string(t)
}
