package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// UsageRecorder attributes successful calls and failures to stored
// credentials. Recording is best effort: callers are never told about store
// failures or unknown values, which are only logged.
type UsageRecorder struct {
	credentials driven.CredentialStore
	metrics     driven.PoolMetrics
	now         func() time.Time
	logger      *slog.Logger
}

// NewUsageRecorder creates a UsageRecorder.
func NewUsageRecorder(credentials driven.CredentialStore, metrics driven.PoolMetrics, logger *slog.Logger) *UsageRecorder {
	return &UsageRecorder{
		credentials: credentials,
		metrics:     metrics,
		now:         time.Now,
		logger:      logger,
	}
}

// RecordUsage increments the usage counter of the credential whose plaintext
// is value and stamps its last-used time.
func (u *UsageRecorder) RecordUsage(ctx context.Context, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	ref, matched, err := u.credentials.IncrementUsage(ctx, cipherbox.Hash(value), u.now().UTC())
	if err != nil {
		u.logger.Error("failed to record credential usage", "credential", cipherbox.Mask(value), "error", err)
		return
	}
	if !matched {
		u.logger.Info("usage recorded for unknown credential", "credential", cipherbox.Mask(value))
		return
	}
	u.metrics.CredentialUsed(ref.Provider, ref.AccountLabel)
}

// RecordError increments the error counter of the credential whose plaintext
// is value. Status is left unchanged.
func (u *UsageRecorder) RecordError(ctx context.Context, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	ref, matched, err := u.credentials.IncrementErrors(ctx, cipherbox.Hash(value))
	if err != nil {
		u.logger.Error("failed to record credential error", "credential", cipherbox.Mask(value), "error", err)
		return
	}
	if !matched {
		u.logger.Info("error recorded for unknown credential", "credential", cipherbox.Mask(value))
		return
	}
	u.metrics.CredentialErrored(ref.Provider, ref.AccountLabel)
}
