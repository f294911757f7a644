package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/credpool/internal/application"
	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a stored credential. The
// value is always masked.
type CredentialResponse struct {
	ID           int64   `json:"id"`
	Provider     string  `json:"provider"`
	MaskedValue  string  `json:"masked_value"`
	Decrypted    bool    `json:"decrypted"`
	AccountLabel string  `json:"account_label"`
	Status       string  `json:"status"`
	UsageCount   int64   `json:"usage_count"`
	ErrorCount   int64   `json:"error_count"`
	LastUsed     *string `json:"last_used"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// AccountStatsResponse is the JSON representation of one account's aggregates.
type AccountStatsResponse struct {
	AccountLabel string `json:"account_label"`
	TotalKeys    int    `json:"total_keys"`
	ActiveKeys   int    `json:"active_keys"`
	TotalUsage   int64  `json:"total_usage"`
	TotalErrors  int64  `json:"total_errors"`
}

// AddCredentialRequest is the JSON body for the add credential endpoint.
// Empty account label and provider fall back to the primary account and the
// configured provider.
type AddCredentialRequest struct {
	Value        string `json:"value"`
	AccountLabel string `json:"account_label"`
	Provider     string `json:"provider"`
}

// AddCredentialResponse reports whether a new credential was stored.
type AddCredentialResponse struct {
	Added        bool   `json:"added"`
	Provider     string `json:"provider"`
	AccountLabel string `json:"account_label"`
	MaskedValue  string `json:"masked_value"`
}

// UpdateStatusRequest is the JSON body for the status endpoint.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// MaintenanceResponse is the JSON representation of a maintenance cycle.
type MaintenanceResponse struct {
	Reset    bool `json:"reset"`
	Imported int  `json:"imported"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status            string `json:"status"`
	Time              string `json:"time"`
	ActiveCredentials int    `json:"active_credentials"`
}

// toCredentialResponse converts a domain Credential to its JSON response representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	resp := CredentialResponse{
		ID:           c.ID,
		Provider:     c.Provider,
		Decrypted:    c.Decrypted,
		AccountLabel: c.AccountLabel,
		Status:       string(c.Status),
		UsageCount:   c.UsageCount,
		ErrorCount:   c.ErrorCount,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.Decrypted {
		resp.MaskedValue = cipherbox.Mask(c.Value)
	}
	if c.LastUsed != nil {
		lu := c.LastUsed.UTC().Format(time.RFC3339)
		resp.LastUsed = &lu
	}
	return resp
}

// toAccountStatsResponse converts domain AccountStats to its JSON representation.
func toAccountStatsResponse(s model.AccountStats) AccountStatsResponse {
	return AccountStatsResponse{
		AccountLabel: s.AccountLabel,
		TotalKeys:    s.TotalKeys,
		ActiveKeys:   s.ActiveKeys,
		TotalUsage:   s.TotalUsage,
		TotalErrors:  s.TotalErrors,
	}
}

// toMaintenanceResponse converts a MaintenanceResult to its JSON representation.
func toMaintenanceResponse(r application.MaintenanceResult) MaintenanceResponse {
	return MaintenanceResponse{
		Reset:    r.Reset,
		Imported: r.Import.Imported,
		Skipped:  r.Import.Skipped,
		Failed:   r.Import.Failed,
	}
}
