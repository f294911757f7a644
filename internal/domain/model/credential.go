package model

import (
	"strconv"
	"time"
)

// PrimaryAccountLabel is the account label given to credentials imported from
// the primary (un-numbered) configured list.
const PrimaryAccountLabel = "Primary Account"

// NumberedAccountLabel returns the account label for the n-th numbered
// configured list, e.g. "Account 2".
func NumberedAccountLabel(n int) string {
	return "Account " + strconv.Itoa(n)
}

// Credential is one stored API key for an external provider. ValueHash
// identifies the plaintext without decrypting it. Value is only populated
// when Decrypted is true; a row whose envelope could not be opened with the
// current master key is still listed but carries an empty Value.
type Credential struct {
	ID           int64
	Provider     string
	Value        string
	Decrypted    bool
	ValueHash    string
	AccountLabel string
	Status       CredentialStatus
	UsageCount   int64
	ErrorCount   int64
	LastUsed     *time.Time // nil until the first recorded usage.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unused reports whether the credential has never been handed out and
// reported back as used.
func (c Credential) Unused() bool {
	return c.LastUsed == nil
}

// AccountRef identifies the provider and account a credential belongs to.
type AccountRef struct {
	Provider     string
	AccountLabel string
}

// AccountStats aggregates credential counters for one account label.
type AccountStats struct {
	AccountLabel string
	TotalKeys    int
	ActiveKeys   int
	TotalUsage   int64
	TotalErrors  int64
}
