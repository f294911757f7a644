package driven

// PoolMetrics receives telemetry events from the credential pool. Account is
// the credential's account label.
type PoolMetrics interface {
	CredentialUsed(provider, account string)
	CredentialErrored(provider, account string)
	CredentialsImported(account string, n int)
	DecryptFailed()
	DailyReset()
	ActiveCredentials(provider string, n int)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) CredentialUsed(string, string)    {}
func (NopMetrics) CredentialErrored(string, string) {}
func (NopMetrics) CredentialsImported(string, int)  {}
func (NopMetrics) DecryptFailed()                   {}
func (NopMetrics) DailyReset()                      {}
func (NopMetrics) ActiveCredentials(string, int)    {}
