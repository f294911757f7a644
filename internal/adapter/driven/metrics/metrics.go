// Package metrics exports credential pool telemetry as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PoolMetrics = (*PoolMetrics)(nil)

// PoolMetrics records pool events into Prometheus collectors registered on the
// registerer passed to NewPoolMetrics.
type PoolMetrics struct {
	usageTotal        *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	importedTotal     *prometheus.CounterVec
	decryptFailures   prometheus.Counter
	dailyResets       prometheus.Counter
	activeCredentials *prometheus.GaugeVec
}

// NewPoolMetrics creates and registers the pool collectors on reg.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	factory := promauto.With(reg)

	return &PoolMetrics{
		usageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credpool_credential_usage_total",
				Help: "Total number of recorded credential usages",
			},
			[]string{"provider", "account"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credpool_credential_errors_total",
				Help: "Total number of recorded credential errors",
			},
			[]string{"provider", "account"},
		),
		importedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credpool_imported_credentials_total",
				Help: "Total number of credentials imported from configured lists",
			},
			[]string{"account"},
		),
		decryptFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "credpool_decrypt_failures_total",
				Help: "Total number of credential envelopes that failed to decrypt",
			},
		),
		dailyResets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "credpool_daily_resets_total",
				Help: "Total number of daily usage counter resets performed",
			},
		),
		activeCredentials: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "credpool_active_credentials",
				Help: "Number of usable active credentials at the last selection",
			},
			[]string{"provider"},
		),
	}
}

// CredentialUsed records a successful use of a credential.
func (m *PoolMetrics) CredentialUsed(provider, account string) {
	m.usageTotal.WithLabelValues(provider, account).Inc()
}

// CredentialErrored records a failed call made with a credential.
func (m *PoolMetrics) CredentialErrored(provider, account string) {
	m.errorsTotal.WithLabelValues(provider, account).Inc()
}

// CredentialsImported records n newly imported credentials for account.
func (m *PoolMetrics) CredentialsImported(account string, n int) {
	if n <= 0 {
		return
	}
	m.importedTotal.WithLabelValues(account).Add(float64(n))
}

// DecryptFailed records an envelope that could not be opened.
func (m *PoolMetrics) DecryptFailed() {
	m.decryptFailures.Inc()
}

// DailyReset records a performed daily usage reset.
func (m *PoolMetrics) DailyReset() {
	m.dailyResets.Inc()
}

// ActiveCredentials sets the number of usable credentials for provider.
func (m *PoolMetrics) ActiveCredentials(provider string, n int) {
	m.activeCredentials.WithLabelValues(provider).Set(float64(n))
}
