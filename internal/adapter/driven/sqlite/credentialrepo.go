package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// Sealer encrypts and decrypts credential envelopes. *cipherbox.Box satisfies it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Credential values are sealed before write and opened after read; rows are
// looked up by the plaintext's SHA-256 digest so counters can be updated
// without decrypting anything.
type CredentialRepo struct {
	db     *DB
	sealer Sealer
	now    func() time.Time
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB, sealer Sealer) *CredentialRepo {
	return &CredentialRepo{db: db, sealer: sealer, now: time.Now}
}

// EnsureSchema applies the embedded migrations. Safe to call on every pool
// construction.
func (r *CredentialRepo) EnsureSchema(_ context.Context) error {
	return RunMigrations(r.db.Writer)
}

// Add stores plaintext for provider under accountLabel. A credential whose
// digest is already stored is skipped and reported as (false, nil).
func (r *CredentialRepo) Add(ctx context.Context, plaintext, accountLabel, provider string) (bool, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return false, driven.ErrEmptyCredential
	}

	encrypted, err := r.sealer.Encrypt(plaintext)
	if err != nil {
		return false, fmt.Errorf("encrypt credential: %w", err)
	}

	const query = `
		INSERT INTO credentials (provider, encrypted_value, value_hash, account_label, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(value_hash) DO NOTHING
	`

	now := formatTime(r.now())
	var inserted int64
	err = withSchemaHeal(ctx, r.db, func() error {
		result, err := r.db.Writer.ExecContext(ctx, query,
			provider, encrypted, cipherbox.Hash(plaintext), accountLabel, string(model.CredentialStatusActive), now, now,
		)
		if err != nil {
			return err
		}
		inserted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("add credential for %s: %w", provider, err)
	}

	return inserted > 0, nil
}

// ListAll returns every credential for provider, or all providers when
// provider is empty, ordered by creation.
func (r *CredentialRepo) ListAll(ctx context.Context, provider string) ([]model.Credential, error) {
	query := selectCredentials
	var args []any
	if provider != "" {
		query += ` WHERE provider = ?`
		args = append(args, provider)
	}
	query += ` ORDER BY id`

	creds, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// ListActive returns the active credentials for provider ordered by creation.
func (r *CredentialRepo) ListActive(ctx context.Context, provider string) ([]model.Credential, error) {
	query := selectCredentials + ` WHERE provider = ? AND status = ? ORDER BY id`

	creds, err := r.query(ctx, query, provider, string(model.CredentialStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active credentials for %s: %w", provider, err)
	}
	return creds, nil
}

// UpdateStatus sets the administrative status of credential id.
func (r *CredentialRepo) UpdateStatus(ctx context.Context, id int64, status model.CredentialStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", driven.ErrInvalidStatus, status)
	}

	const query = `UPDATE credentials SET status = ?, updated_at = ? WHERE id = ?`
	return r.execOne(ctx, id, "update status of", query, string(status), formatTime(r.now()), id)
}

// Remove deletes credential id.
func (r *CredentialRepo) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM credentials WHERE id = ?`
	return r.execOne(ctx, id, "remove", query, id)
}

// IncrementUsage bumps usage_count and stamps last_used on the row matching
// valueHash in a single statement.
func (r *CredentialRepo) IncrementUsage(ctx context.Context, valueHash string, at time.Time) (model.AccountRef, bool, error) {
	const query = `
		UPDATE credentials
		SET usage_count = usage_count + 1, last_used = ?, updated_at = ?
		WHERE value_hash = ?
		RETURNING provider, account_label
	`
	stamp := formatTime(at)
	ref, matched, err := r.updateReturning(ctx, query, stamp, stamp, valueHash)
	if err != nil {
		return ref, false, fmt.Errorf("increment usage: %w", err)
	}
	return ref, matched, nil
}

// IncrementErrors bumps error_count on the row matching valueHash.
func (r *CredentialRepo) IncrementErrors(ctx context.Context, valueHash string) (model.AccountRef, bool, error) {
	const query = `
		UPDATE credentials
		SET error_count = error_count + 1, updated_at = ?
		WHERE value_hash = ?
		RETURNING provider, account_label
	`
	ref, matched, err := r.updateReturning(ctx, query, formatTime(r.now()), valueHash)
	if err != nil {
		return ref, false, fmt.Errorf("increment errors: %w", err)
	}
	return ref, matched, nil
}

// ResetUsage zeroes usage_count on every credential. Rows already at zero are
// left untouched.
func (r *CredentialRepo) ResetUsage(ctx context.Context) (int64, error) {
	const query = `UPDATE credentials SET usage_count = 0, updated_at = ? WHERE usage_count <> 0`

	n, err := r.execAffected(ctx, query, formatTime(r.now()))
	if err != nil {
		return 0, fmt.Errorf("reset usage counters: %w", err)
	}
	return n, nil
}

// Stats aggregates key counts and counters per account label.
func (r *CredentialRepo) Stats(ctx context.Context) ([]model.AccountStats, error) {
	const query = `
		SELECT account_label,
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(usage_count), 0),
		       COALESCE(SUM(error_count), 0)
		FROM credentials
		GROUP BY account_label
		ORDER BY account_label
	`

	var stats []model.AccountStats
	err := withSchemaHeal(ctx, r.db, func() error {
		stats = nil
		rows, err := r.db.Reader.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s model.AccountStats
			if err := rows.Scan(&s.AccountLabel, &s.TotalKeys, &s.ActiveKeys, &s.TotalUsage, &s.TotalErrors); err != nil {
				return fmt.Errorf("scan account stats: %w", err)
			}
			stats = append(stats, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("credential stats: %w", err)
	}

	return stats, nil
}

const selectCredentials = `
	SELECT id, provider, encrypted_value, value_hash, account_label, status,
	       usage_count, error_count, last_used, created_at, updated_at
	FROM credentials`

// query runs a credential SELECT and decrypts each row. Rows that fail to
// decrypt are kept with Decrypted == false.
func (r *CredentialRepo) query(ctx context.Context, query string, args ...any) ([]model.Credential, error) {
	var creds []model.Credential
	err := withSchemaHeal(ctx, r.db, func() error {
		creds = nil
		rows, err := r.db.Reader.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			cred, err := r.scanCredential(rows)
			if err != nil {
				return err
			}
			creds = append(creds, cred)
		}
		return rows.Err()
	})
	return creds, err
}

func (r *CredentialRepo) scanCredential(s scanner) (model.Credential, error) {
	var cred model.Credential
	var encrypted, status, createdAt, updatedAt string
	var lastUsed sql.NullString

	err := s.Scan(&cred.ID, &cred.Provider, &encrypted, &cred.ValueHash, &cred.AccountLabel, &status,
		&cred.UsageCount, &cred.ErrorCount, &lastUsed, &createdAt, &updatedAt)
	if err != nil {
		return cred, fmt.Errorf("scan credential: %w", err)
	}
	cred.Status = model.CredentialStatus(status)

	if lastUsed.Valid && lastUsed.String != "" {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return cred, fmt.Errorf("parse last_used for credential %d: %w", cred.ID, err)
		}
		cred.LastUsed = &t
	}

	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return cred, fmt.Errorf("parse created_at for credential %d: %w", cred.ID, err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return cred, fmt.Errorf("parse updated_at for credential %d: %w", cred.ID, err)
	}

	if plaintext, err := r.sealer.Decrypt(encrypted); err == nil {
		cred.Value = plaintext
		cred.Decrypted = true
	}

	return cred, nil
}

// updateReturning runs a single-row UPDATE ... RETURNING provider, account_label.
func (r *CredentialRepo) updateReturning(ctx context.Context, query string, args ...any) (model.AccountRef, bool, error) {
	var ref model.AccountRef
	err := withSchemaHeal(ctx, r.db, func() error {
		return r.db.Writer.QueryRowContext(ctx, query, args...).Scan(&ref.Provider, &ref.AccountLabel)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountRef{}, false, nil
	}
	if err != nil {
		return model.AccountRef{}, false, err
	}
	return ref, true, nil
}

// execOne runs a statement that must touch exactly the row identified by id.
func (r *CredentialRepo) execOne(ctx context.Context, id int64, verb, query string, args ...any) error {
	n, err := r.execAffected(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s credential %d: %w", verb, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s credential %d: %w", verb, id, driven.ErrCredentialNotFound)
	}
	return nil
}

func (r *CredentialRepo) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := withSchemaHeal(ctx, r.db, func() error {
		result, err := r.db.Writer.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check rows affected: %w", err)
		}
		return nil
	})
	return n, err
}

// withSchemaHeal runs op and, if it failed because a table is missing,
// recreates the schema and runs op once more.
func withSchemaHeal(ctx context.Context, db *DB, op func() error) error {
	err := op()
	if !isMissingTable(err) {
		return err
	}
	if healErr := reapplySchema(ctx, db.Writer); healErr != nil {
		return errors.Join(err, healErr)
	}
	return op()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
