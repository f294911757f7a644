// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/credpool/internal/domain/model"
)

// Sentinel errors returned by CredentialStore implementations.
var (
	// ErrCredentialNotFound indicates no credential exists with the given id.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrEmptyCredential indicates an empty or whitespace-only plaintext was
	// offered for storage.
	ErrEmptyCredential = errors.New("credential value is empty")

	// ErrInvalidStatus indicates a status outside the known set.
	ErrInvalidStatus = errors.New("invalid credential status")
)

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption and hashing; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// EnsureSchema creates the credential tables and indexes if missing. It is
	// safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// Add stores a new credential. It returns false with a nil error when a
	// credential with the same plaintext already exists.
	Add(ctx context.Context, plaintext, accountLabel, provider string) (bool, error)

	// ListAll returns every credential for provider, or for all providers when
	// provider is empty, in creation order. Values are decrypted plaintext.
	ListAll(ctx context.Context, provider string) ([]model.Credential, error)

	// ListActive returns the active credentials for provider in creation order.
	ListActive(ctx context.Context, provider string) ([]model.Credential, error)

	// UpdateStatus sets the status of credential id. Returns ErrCredentialNotFound
	// or ErrInvalidStatus.
	UpdateStatus(ctx context.Context, id int64, status model.CredentialStatus) error

	// Remove deletes credential id. Returns ErrCredentialNotFound if missing.
	Remove(ctx context.Context, id int64) error

	// IncrementUsage bumps usage_count and sets last_used on the row matching
	// valueHash, returning the row's account. Returns false when no row matched.
	IncrementUsage(ctx context.Context, valueHash string, at time.Time) (model.AccountRef, bool, error)

	// IncrementErrors bumps error_count on the row matching valueHash,
	// returning the row's account. Returns false when no row matched.
	IncrementErrors(ctx context.Context, valueHash string) (model.AccountRef, bool, error)

	// ResetUsage zeroes usage_count for every credential of every provider and
	// returns the number of rows touched.
	ResetUsage(ctx context.Context) (int64, error)

	// Stats aggregates counters per account label.
	Stats(ctx context.Context) ([]model.AccountStats, error)
}
