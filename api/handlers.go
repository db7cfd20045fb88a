/*
handlers.go - HTTP API handlers for the license reporting service

PURPOSE:
  Exposes the license view engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the entitlement
  normalizer and the license engine.

ENDPOINTS:
  Documents:
    POST   /api/documents                  Upload a raw entitlement document
    GET    /api/documents/{id}             Account -> sub-accounts index
    DELETE /api/documents/{id}             Drop a cached document
    GET    /api/documents/{id}/records     Flat records (?format=csv)

  Views:
    GET    /api/documents/{id}/expired     ?va=A&va=B&top=N
    GET    /api/documents/{id}/expiring    ?days=30&top=N
    GET    /api/documents/{id}/shortage    ?top=N
    GET    /api/documents/{id}/usage       ?top=N
    GET    /api/documents/{id}/technology  ?top

  Architectures:
    GET    /api/architectures              List the classification table
    PUT    /api/architectures              Bulk upsert
    DELETE /api/architectures              Clear the table
    PUT    /api/architectures/{license}    Classify one license
    DELETE /api/architectures/{license}    Remove one classification

  Samples:
    GET    /api/samples                    List demo documents
    POST   /api/samples/load               Cache a demo document

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Architecture table (SQLite)
  - Documents: Raw document cache (memory or Redis)
  - Log: logrus logger

REQUEST FLOW (views):
  1. Look the raw document up in the cache
  2. Parse and normalize it, snapshot the architecture table
  3. Build a fresh license.Engine for this request
  4. Compute the view, serialize it

TOP PARAMETER:
  Absent: full view. Present without a value or <= 0: license.DefaultLimit.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed entitlement document, invalid input
  - 404: Unknown document, sample or architecture
  - 422: Usage view hit a zero assigned quantity
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - samples.go: Demo documents
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/cache"
	"github.com/warp/license-engine/entitlement"
	"github.com/warp/license-engine/export"
	"github.com/warp/license-engine/license"
	"github.com/warp/license-engine/store/sqlite"
)

// MaxDocumentBytes caps the size of an uploaded entitlement document.
const MaxDocumentBytes = 32 << 20

// DefaultWindowDays is the future-expiring window when ?days is not given.
const DefaultWindowDays = 30

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Documents cache.Documents
	Log       logrus.FieldLogger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, docs cache.Documents, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:     store,
		Documents: docs,
		Log:       log,
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

func (h *Handler) clock() time.Time {
	return h.Now().UTC()
}

func (h *Handler) logger(r *http.Request) logrus.FieldLogger {
	return h.Log.WithField("request_id", middleware.GetReqID(r.Context()))
}

// =============================================================================
// DOCUMENT ENDPOINTS
// =============================================================================

// UploadDocument validates and caches a raw entitlement document.
// POST /api/documents
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Failed to read document", err)
		return
	}
	h.storeDocument(w, r, raw)
}

// storeDocument normalizes raw once to validate it, then caches it.
func (h *Handler) storeDocument(w http.ResponseWriter, r *http.Request, raw []byte) {
	log := h.logger(r)

	engine, err := h.buildEngine(r, raw, license.MapTable{})
	if err != nil {
		log.WithError(err).Warn("rejected entitlement document")
		writeEngineError(w, err)
		return
	}

	id := h.NewID()
	if err := h.Documents.Put(r.Context(), id, raw); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to cache document", err)
		return
	}

	log.WithFields(logrus.Fields{"document_id": id, "records": engine.Len()}).Info("cached entitlement document")
	writeJSON(w, http.StatusCreated, DocumentDTO{
		ID:          id,
		Accounts:    engine.AccountNames(),
		RecordCount: engine.Len(),
	})
}

// GetDocument returns the account -> sub-accounts index.
// GET /api/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, engine.AccountSubAccounts())
}

// DeleteDocument drops a cached document.
// DELETE /api/documents/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Documents.Del(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRecords returns the flat records as JSON, or CSV with ?format=csv.
// GET /api/documents/{id}/records
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, engine.Records())
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="licenses.csv"`)
		if err := export.WriteRecords(w, engine.Records()); err != nil {
			h.logger(r).WithError(err).Error("failed to write CSV export")
		}
	default:
		writeError(w, http.StatusBadRequest, "Unsupported format", fmt.Errorf("format %q", format))
	}
}

// =============================================================================
// VIEW ENDPOINTS
// =============================================================================

// GetExpired returns the expired-license view.
// GET /api/documents/{id}/expired
func (h *Handler) GetExpired(w http.ResponseWriter, r *http.Request) {
	limit, capped, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	va := r.URL.Query()["va"]
	if capped {
		writeJSON(w, http.StatusOK, engine.TopExpiredLicenses(limit, va...))
		return
	}
	writeJSON(w, http.StatusOK, engine.ExpiredLicenses(va...))
}

// GetExpiring returns the licenses expiring within ?days (default 30).
// GET /api/documents/{id}/expiring
func (h *Handler) GetExpiring(w http.ResponseWriter, r *http.Request) {
	limit, capped, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	days := DefaultWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "Invalid days", fmt.Errorf("days must be a non-negative integer, got %q", raw))
			return
		}
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if capped {
		writeJSON(w, http.StatusOK, engine.TopFutureExpiring(days, limit))
		return
	}
	writeJSON(w, http.StatusOK, engine.FutureExpiring(days))
}

// GetShortage returns licenses in use beyond their assigned quantity.
// GET /api/documents/{id}/shortage
func (h *Handler) GetShortage(w http.ResponseWriter, r *http.Request) {
	limit, capped, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if capped {
		writeJSON(w, http.StatusOK, engine.TopLicenseShortage(limit))
		return
	}
	writeJSON(w, http.StatusOK, engine.LicenseShortage())
}

// GetUsage returns license usage percentages, rounded for display.
// GET /api/documents/{id}/usage
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	limit, capped, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if capped {
		top, err := engine.TopLicenseUsage(limit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roundUsage(top))
		return
	}
	summary, err := engine.LicenseUsage()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageDTO(summary))
}

// GetTechnology returns each account's in-use share per architecture.
// GET /api/documents/{id}/technology
func (h *Handler) GetTechnology(w http.ResponseWriter, r *http.Request) {
	_, sorted, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid top", err)
		return
	}
	engine, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if sorted {
		writeJSON(w, http.StatusOK, roundTechnology(engine.TopLicenseTechnologyMix()))
		return
	}
	writeJSON(w, http.StatusOK, roundTechnology(engine.LicenseTechnologyMix()))
}

// =============================================================================
// ARCHITECTURE ENDPOINTS
// =============================================================================

// ListArchitectures returns the classification table.
// GET /api/architectures
func (h *Handler) ListArchitectures(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListArchitectures(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list architectures", err)
		return
	}
	writeJSON(w, http.StatusOK, toArchitectureDTOs(records))
}

// PutArchitectures upserts a list of {license, architecture} entries.
// PUT /api/architectures
func (h *Handler) PutArchitectures(w http.ResponseWriter, r *http.Request) {
	var entries []architecture.Entry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Store.SaveArchitectures(r.Context(), entries); err != nil {
		if errors.Is(err, architecture.ErrInvalidTable) {
			writeError(w, http.StatusBadRequest, "Invalid architecture entry", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save architectures", err)
		return
	}

	h.logger(r).WithField("count", len(entries)).Info("architectures saved")
	h.ListArchitectures(w, r)
}

// PutArchitecture classifies one license.
// PUT /api/architectures/{license}
func (h *Handler) PutArchitecture(w http.ResponseWriter, r *http.Request) {
	var req ArchitectureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry := architecture.Entry{License: chi.URLParam(r, "license"), Architecture: req.Architecture}
	if err := h.Store.SaveArchitecture(r.Context(), entry); err != nil {
		if errors.Is(err, architecture.ErrInvalidTable) {
			writeError(w, http.StatusBadRequest, "Invalid architecture entry", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save architecture", err)
		return
	}

	h.logger(r).WithField("license", entry.License).Info("architecture saved")
	writeJSON(w, http.StatusOK, ArchitectureDTO{License: entry.License, Architecture: entry.Architecture})
}

// ClearArchitectures empties the classification table.
// DELETE /api/architectures
func (h *Handler) ClearArchitectures(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear architectures", err)
		return
	}
	h.logger(r).Info("architectures cleared")
	w.WriteHeader(http.StatusNoContent)
}

// DeleteArchitecture removes one classification.
// DELETE /api/architectures/{license}
func (h *Handler) DeleteArchitecture(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "license")
	if err := h.Store.DeleteArchitecture(r.Context(), name); err != nil {
		if errors.Is(err, sqlite.ErrArchitectureNotFound) {
			writeErrorCode(w, http.StatusNotFound, "Architecture not found", "unknown_architecture", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete architecture", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// engineFor builds a request-scoped engine for the document in the URL.
// On failure the response has been written and ok is false.
func (h *Handler) engineFor(w http.ResponseWriter, r *http.Request) (*license.Engine, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	raw, found, err := h.Documents.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read document cache", err)
		return nil, false
	}
	if !found {
		writeErrorCode(w, http.StatusNotFound, "Document not found", "unknown_document", fmt.Errorf("document %q", id))
		return nil, false
	}

	table, err := h.Store.Table(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load architectures", err)
		return nil, false
	}

	engine, err := h.buildEngine(r, raw, table)
	if err != nil {
		writeEngineError(w, err)
		return nil, false
	}
	return engine, true
}

func (h *Handler) buildEngine(r *http.Request, raw []byte, table license.ArchitectureTable) (*license.Engine, error) {
	doc, err := entitlement.ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return license.FromDocument(doc,
		license.WithArchitectures(table),
		license.WithClock(h.clock),
		license.WithLogger(h.logger(r)),
	)
}

// topParam reads ?top. capped is false when the parameter is absent.
func topParam(r *http.Request) (limit int, capped bool, err error) {
	q := r.URL.Query()
	if _, ok := q["top"]; !ok {
		return 0, false, nil
	}
	raw := q.Get("top")
	if raw == "" {
		return license.DefaultLimit, true, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("top must be an integer, got %q", raw)
	}
	if n <= 0 {
		n = license.DefaultLimit
	}
	return n, true, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, message, "", err)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps normalizer and engine failures to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case entitlement.IsMalformed(err):
		writeErrorCode(w, http.StatusBadRequest, "Malformed entitlement document", "malformed_entitlement", err)
	case license.IsDivisionByZero(err):
		writeErrorCode(w, http.StatusUnprocessableEntity, "License usage cannot be computed", "division_by_zero", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to compute view", err)
	}
}
