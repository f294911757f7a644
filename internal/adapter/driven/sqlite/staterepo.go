package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateStore = (*StateRepo)(nil)

// StateRepo is the SQLite implementation of the StateStore port interface.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new StateRepo backed by the given DB.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// GetState returns the value stored under key. Returns ("", false, nil) if the
// key has never been set.
func (r *StateRepo) GetState(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM pool_state WHERE key = ?`

	var value string
	err := withSchemaHeal(ctx, r.db, func() error {
		return r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}

	return value, true, nil
}

// SetState inserts or replaces the value stored under key.
func (r *StateRepo) SetState(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO pool_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	err := withSchemaHeal(ctx, r.db, func() error {
		_, err := r.db.Writer.ExecContext(ctx, query, key, value, formatTime(time.Now()))
		return err
	})
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}

	return nil
}
