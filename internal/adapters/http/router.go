// Package httpadapter exposes the upload and status endpoints consumed by
// the application layer. Processing itself is asynchronous; POST answers 202
// and clients poll GET for the outcome.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dollarfunding/document-service/internal/core/domain"
	"github.com/dollarfunding/document-service/internal/core/ports"
	"github.com/dollarfunding/document-service/internal/observability/metrics"
)

const serviceName = "document-service"

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	MaxUploadBytes int64
}

type Router struct {
	cfg      RouterConfig
	ingestUC ports.DocumentIngestor
	reader   ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(cfg RouterConfig, ingestUC ports.DocumentIngestor, reader ports.DocumentReader, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		ingestUC: ingestUC,
		reader:   reader,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, time.Second)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(r.Context(), ports.UploadRequest{
		ApplicationID: r.FormValue("application_id"),
		UserID:        r.FormValue("user_id"),
		FileName:      fileHeader.Filename,
		MimeType:      fileHeader.Header.Get("Content-Type"),
		FileSize:      fileHeader.Size,
		Body:          file,
	})
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	rt.recordUpload("accepted", doc.FileSize)
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, documentStatusResponse(doc))
}

type statusResponse struct {
	DocumentID       string                 `json:"document_id"`
	ApplicationID    string                 `json:"application_id"`
	DocumentType     domain.DocumentType    `json:"document_type,omitempty"`
	ProcessingStatus domain.DocumentStatus  `json:"processing_status"`
	ConfidenceScore  *float64               `json:"confidence_score,omitempty"`
	ExtractedFields  domain.ExtractedFields `json:"extracted_fields,omitempty"`
	StageLog         []domain.StageRecord   `json:"stage_log,omitempty"`
}

func documentStatusResponse(doc *domain.Document) statusResponse {
	resp := statusResponse{
		DocumentID:       doc.ID,
		ApplicationID:    doc.ApplicationID,
		DocumentType:     doc.DocumentType,
		ProcessingStatus: doc.Status,
		ExtractedFields:  doc.Fields,
		StageLog:         doc.StageLog,
	}
	if doc.Classification != nil {
		resp.ConfidenceScore = &doc.Classification.Confidence
	}
	return resp
}

func (rt *Router) recordUpload(outcome string, size int64) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, outcome, size)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
