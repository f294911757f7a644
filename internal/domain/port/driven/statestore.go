package driven

import "context"

// StateKeyDailyReset holds the calendar date of the last usage reset.
const StateKeyDailyReset = "daily_reset_date"

// StateStore persists small named values shared by every pool instance, such
// as the last daily reset date.
type StateStore interface {
	// GetState returns the value stored under key and whether it exists.
	GetState(ctx context.Context, key string) (string, bool, error)

	// SetState inserts or replaces the value stored under key.
	SetState(ctx context.Context, key, value string) error
}
