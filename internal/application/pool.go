// Package application contains use-case orchestration services for the
// credential pool.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// PoolDeps are the driven ports a Pool is built from.
type PoolDeps struct {
	Credentials driven.CredentialStore
	State       driven.StateStore
	Source      driven.ConfigSource
	Metrics     driven.PoolMetrics
	Logger      *slog.Logger
}

// PoolConfig controls import and reset behavior.
type PoolConfig struct {
	// Provider that configured lists are imported under.
	Provider      string
	KeyListPrefix string
	KeyDelimiter  string
	MaxNumbered   int
	ResetLocation *time.Location
}

// Pool is the entry point collaborators use to obtain credentials and report
// back on them. Collaborator-facing methods never fail: they log and return
// the best available result.
type Pool struct {
	credentials driven.CredentialStore
	metrics     driven.PoolMetrics
	importer    *Importer
	scheduler   *ResetScheduler
	recorder    *UsageRecorder
	provider    string
	logger      *slog.Logger
}

// NewPool wires the pool services and ensures the schema exists. A schema
// failure is logged; later calls heal missing tables on their own.
func NewPool(ctx context.Context, deps PoolDeps, cfg PoolConfig) *Pool {
	if deps.Metrics == nil {
		deps.Metrics = driven.NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	p := &Pool{
		credentials: deps.Credentials,
		metrics:     deps.Metrics,
		importer: NewImporter(deps.Credentials, deps.Source, deps.Metrics, ImportConfig{
			Provider:    cfg.Provider,
			Prefix:      cfg.KeyListPrefix,
			Delimiter:   cfg.KeyDelimiter,
			MaxNumbered: cfg.MaxNumbered,
		}, deps.Logger),
		scheduler: NewResetScheduler(deps.Credentials, deps.State, deps.Metrics, cfg.ResetLocation, deps.Logger),
		recorder:  NewUsageRecorder(deps.Credentials, deps.Metrics, deps.Logger),
		provider:  cfg.Provider,
		logger:    deps.Logger,
	}

	if err := p.credentials.EnsureSchema(ctx); err != nil {
		p.logger.Error("failed to ensure credential schema", "error", err)
	}

	return p
}

// ObtainActive returns the plaintext values of provider's active credentials
// in rotation order. Each call first runs the daily reset check and the
// configured-list import. When no stored credential is usable and provider is
// the configured provider, the configured values are returned verbatim.
func (p *Pool) ObtainActive(ctx context.Context, provider string) []string {
	p.ResetIfNewDay(ctx)
	p.importer.Import(ctx)

	creds, err := p.credentials.ListActive(ctx, provider)
	if err != nil {
		p.logger.Error("failed to list active credentials", "provider", provider, "error", err)
	}

	usable := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		if !c.Decrypted {
			p.logger.Warn("skipping credential that failed to decrypt",
				"id", c.ID,
				"account", c.AccountLabel,
			)
			continue
		}
		usable = append(usable, c)
	}
	p.metrics.ActiveCredentials(provider, len(usable))

	if len(usable) == 0 {
		if provider != p.provider {
			return nil
		}
		values := p.importer.ConfiguredValues()
		if len(values) > 0 {
			p.logger.Warn("no usable stored credentials, falling back to configured lists",
				"provider", provider,
				"count", len(values),
			)
		}
		return values
	}

	ordered := OrderForRotation(usable)
	values := make([]string, len(ordered))
	for i, c := range ordered {
		values[i] = c.Value
	}
	return values
}

// Add stores a credential and reports whether a new row was created. Empty
// values, duplicates and store failures all yield false.
func (p *Pool) Add(ctx context.Context, plaintext, accountLabel, provider string) bool {
	added, err := p.credentials.Add(ctx, plaintext, accountLabel, provider)
	if err != nil {
		p.logger.Warn("failed to add credential",
			"provider", provider,
			"account", accountLabel,
			"error", err,
		)
		return false
	}
	return added
}

// RecordUsage attributes one successful call to the credential value.
func (p *Pool) RecordUsage(ctx context.Context, value string) {
	p.recorder.RecordUsage(ctx, value)
}

// RecordError attributes one failed call to the credential value.
func (p *Pool) RecordError(ctx context.Context, value string) {
	p.recorder.RecordError(ctx, value)
}

// ListAll returns every stored credential, decrypted where possible. An empty
// provider lists all providers.
func (p *Pool) ListAll(ctx context.Context, provider string) ([]model.Credential, error) {
	return p.credentials.ListAll(ctx, provider)
}

// Stats returns per-account aggregates.
func (p *Pool) Stats(ctx context.Context) ([]model.AccountStats, error) {
	return p.credentials.Stats(ctx)
}

// UpdateStatus sets the administrative status of credential id.
func (p *Pool) UpdateStatus(ctx context.Context, id int64, status model.CredentialStatus) error {
	return p.credentials.UpdateStatus(ctx, id, status)
}

// Remove deletes credential id.
func (p *Pool) Remove(ctx context.Context, id int64) error {
	return p.credentials.Remove(ctx, id)
}

// Import runs the configured-list import immediately.
func (p *Pool) Import(ctx context.Context) ImportResult {
	return p.importer.Import(ctx)
}

// ResetIfNewDay runs the daily reset check and reports whether counters were
// reset. Failures are logged.
func (p *Pool) ResetIfNewDay(ctx context.Context) bool {
	reset, err := p.scheduler.Check(ctx)
	if err != nil {
		p.logger.Error("daily usage reset check failed", "error", err)
	}
	return reset
}
