package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/credpool/internal/application"
	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// Maintainer runs an immediate reset check and import.
// *application.MaintenanceService satisfies it.
type Maintainer interface {
	RunNow(ctx context.Context) (application.MaintenanceResult, error)
}

// Handler is the HTTP driving adapter that serves the credential admin API.
// Plaintext credential values are accepted on input but never written to a
// response.
type Handler struct {
	credentials     driven.CredentialStore
	maintenance     Maintainer
	defaultProvider string
	logger          *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. maintenance
// may be nil, in which case the maintenance endpoint reports 503.
func NewHandler(
	credentials driven.CredentialStore,
	maintenance Maintainer,
	defaultProvider string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentials:     credentials,
		maintenance:     maintenance,
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, no-store headers, a body size limit and panic recovery. A nil
// metrics handler leaves /metrics unregistered.
func NewServeMux(h *Handler, metrics http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.AddCredential)
	mux.HandleFunc("PATCH /api/v1/credentials/{id}/status", h.UpdateStatus)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.RemoveCredential)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/maintenance", h.RunMaintenance)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = credentialHeadersMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListCredentials returns stored credentials with masked values, optionally
// filtered by the provider query parameter.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")

	creds, err := h.credentials.ListAll(r.Context(), provider)
	if err != nil {
		h.logger.Error("failed to list credentials", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddCredential stores a new credential. A duplicate is reported with
// added=false and status 200.
func (h *Handler) AddCredential(w http.ResponseWriter, r *http.Request) {
	var req AddCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	value := strings.TrimSpace(req.Value)
	if value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	label := strings.TrimSpace(req.AccountLabel)
	if label == "" {
		label = model.PrimaryAccountLabel
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = h.defaultProvider
	}

	added, err := h.credentials.Add(r.Context(), value, label, provider)
	if err != nil {
		h.logger.Error("failed to add credential",
			"provider", provider,
			"account", label,
			"credential", cipherbox.Mask(value),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, AddCredentialResponse{
		Added:        added,
		Provider:     provider,
		AccountLabel: label,
		MaskedValue:  cipherbox.Mask(value),
	})
}

// UpdateStatus changes the administrative status of a credential.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := model.CredentialStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.credentials.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, driven.ErrCredentialNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		h.logger.Error("failed to update credential status", "id", id, "status", status, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveCredential deletes a credential.
func (h *Handler) RemoveCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.credentials.Remove(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrCredentialNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		h.logger.Error("failed to remove credential", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns per-account aggregates.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.credentials.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load credential stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AccountStatsResponse, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, toAccountStatsResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RunMaintenance runs the daily reset check and configured-list import
// immediately and reports the outcome.
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	if h.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not running")
		return
	}

	result, err := h.maintenance.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual maintenance failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "maintenance did not complete")
		return
	}

	writeJSON(w, http.StatusOK, toMaintenanceResponse(result))
}

// Health reports whether the credential store is readable and how many
// active credentials it holds. An unreadable store yields 503 "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	stats, err := h.credentials.Stats(r.Context())
	if err != nil {
		h.logger.Warn("health check could not read credential store", "error", err)
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	for _, s := range stats {
		resp.ActiveCredentials += s.ActiveKeys
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseID reads the {id} path value, writing a 400 response when it is not a
// positive integer.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return 0, false
	}
	return id, true
}

// decodeBody decodes the JSON request body into v, writing a 413 or 400
// response and returning false when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}
