package model

// CredentialStatus represents the administrative state of a credential.
// Only active credentials are handed out to callers.
type CredentialStatus string

const (
	CredentialStatusActive        CredentialStatus = "active"
	CredentialStatusRateLimited   CredentialStatus = "rate_limited"
	CredentialStatusQuotaExceeded CredentialStatus = "quota_exceeded"
	CredentialStatusExhausted     CredentialStatus = "exhausted"
)

// Valid reports whether s is one of the known credential statuses.
func (s CredentialStatus) Valid() bool {
	switch s {
	case CredentialStatusActive, CredentialStatusRateLimited, CredentialStatusQuotaExceeded, CredentialStatusExhausted:
		return true
	}
	return false
}
