package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/myquran/internal/domain"
)

// MaxRecordBytes bounds a single pushed record.
const MaxRecordBytes = 1 << 20

// syncStore is the authoritative record store behind the sync API.
type syncStore interface {
	Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error
	FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error)
	ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error)
}

// SyncHandler exposes the record store over REST. Every route is scoped to
// the user that the auth middleware put in the context.
type SyncHandler struct {
	store syncStore
	log   *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(store syncStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{store: store, log: logger.With("handler", "sync")}
}

// ListResponse is the body of GET /v1/records/{kind}.
type ListResponse struct {
	Records []domain.RemoteRecord `json:"records"`
}

// Routes mounts the record endpoints on r.
func (h *SyncHandler) Routes(r chi.Router) {
	r.Route("/records/{kind}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/by-key", h.FindByKey)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles POST /v1/records/{kind}.
func (h *SyncHandler) Create(w http.ResponseWriter, r *http.Request) {
	rec, err := h.decodeRecord(w, r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	created, err := h.store.Create(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /v1/records/{kind}/{id}.
func (h *SyncHandler) Update(w http.ResponseWriter, r *http.Request) {
	rec, err := h.decodeRecord(w, r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	rec.RemoteID = chi.URLParam(r, "id")

	updated, err := h.store.Update(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /v1/records/{kind}/{id}?version=N.
func (h *SyncHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil || version <= 0 {
		writeServiceError(w, r, h.log, domain.NewValidationError("version", "must be a positive integer"))
		return
	}

	if err := h.store.SoftDelete(r.Context(), kind, chi.URLParam(r, "id"), version); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FindByKey handles GET /v1/records/{kind}/by-key?key=K. Natural keys such as
// "2:255" travel in the query string so they never need path escaping.
func (h *SyncHandler) FindByKey(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeServiceError(w, r, h.log, domain.NewValidationError("key", "required"))
		return
	}

	rec, found, err := h.store.FindByNaturalKey(r.Context(), kind, key)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List handles GET /v1/records/{kind}?since=RFC3339. A missing since lists
// everything, including tombstones.
func (h *SyncHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeServiceError(w, r, h.log, domain.NewValidationError("since", "must be an RFC 3339 timestamp"))
			return
		}
	}

	recs, err := h.store.ListUpdatedSince(r.Context(), kind, since)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if recs == nil {
		recs = []domain.RemoteRecord{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Records: recs})
}

// decodeRecord reads a record body and pins its kind to the path.
func (h *SyncHandler) decodeRecord(w http.ResponseWriter, r *http.Request) (domain.RemoteRecord, error) {
	kind, err := kindParam(r)
	if err != nil {
		return domain.RemoteRecord{}, err
	}

	var rec domain.RemoteRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRecordBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.RemoteRecord{}, domain.NewValidationError("body", fmt.Sprintf("exceeds %d bytes", tooLarge.Limit))
		}
		return domain.RemoteRecord{}, domain.NewValidationError("body", "invalid JSON")
	}

	if rec.Kind != "" && rec.Kind != kind {
		return domain.RemoteRecord{}, domain.NewValidationError("kind", "does not match path")
	}
	rec.Kind = kind

	var errs []domain.FieldError
	if rec.ClientID == "" {
		errs = append(errs, domain.FieldError{Field: "client_id", Message: "required"})
	}
	if rec.Version <= 0 {
		errs = append(errs, domain.FieldError{Field: "version", Message: "must be positive"})
	}
	if len(rec.Payload) > 0 && !json.Valid(rec.Payload) {
		errs = append(errs, domain.FieldError{Field: "payload", Message: "invalid JSON"})
	}
	if len(errs) > 0 {
		return domain.RemoteRecord{}, domain.NewValidationErrors(errs)
	}
	return rec, nil
}

func kindParam(r *http.Request) (domain.EntityKind, error) {
	kind := domain.EntityKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		return "", domain.NewValidationError("kind", fmt.Sprintf("unknown kind %q", kind))
	}
	return kind, nil
}
