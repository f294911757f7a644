package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

const resetDateLayout = "2006-01-02"

// ResetScheduler zeroes credential usage counters once per calendar day in a
// fixed timezone. The last reset date is persisted in the StateStore so every
// pool instance sees the same marker. There is no lock: running the reset twice
// for the same date is harmless.
type ResetScheduler struct {
	credentials driven.CredentialStore
	state       driven.StateStore
	metrics     driven.PoolMetrics
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewResetScheduler creates a ResetScheduler evaluating calendar days in loc.
// A nil loc means UTC.
func NewResetScheduler(
	credentials driven.CredentialStore,
	state driven.StateStore,
	metrics driven.PoolMetrics,
	loc *time.Location,
	logger *slog.Logger,
) *ResetScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ResetScheduler{
		credentials: credentials,
		state:       state,
		metrics:     metrics,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// Today returns the current calendar date in the scheduler's timezone.
func (s *ResetScheduler) Today() string {
	return s.now().In(s.loc).Format(resetDateLayout)
}

// Check resets usage counters if the persisted marker is not today's date and
// reports whether a reset ran. Counters are reset before the marker is
// written: if the marker write fails the next call resets again, so a day's
// reset is never skipped.
func (s *ResetScheduler) Check(ctx context.Context) (bool, error) {
	today := s.Today()

	last, ok, err := s.state.GetState(ctx, driven.StateKeyDailyReset)
	if err != nil {
		return false, fmt.Errorf("read reset marker: %w", err)
	}
	if ok && last == today {
		return false, nil
	}

	n, err := s.credentials.ResetUsage(ctx)
	if err != nil {
		return false, fmt.Errorf("reset usage for %s: %w", today, err)
	}

	if err := s.state.SetState(ctx, driven.StateKeyDailyReset, today); err != nil {
		s.logger.Error("usage counters reset but marker write failed; reset will repeat",
			"date", today,
			"error", err,
		)
		return true, fmt.Errorf("write reset marker for %s: %w", today, err)
	}

	s.metrics.DailyReset()
	s.logger.Info("daily usage counters reset",
		"date", today,
		"previous", last,
		"credentials_reset", n,
	)
	return true, nil
}
