package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// ImportConfig names the externally configured credential lists. Numbered
// lists are read from Prefix_1 … Prefix_MaxNumbered; the primary list from
// Prefix itself.
type ImportConfig struct {
	Provider    string
	Prefix      string
	Delimiter   string
	MaxNumbered int
}

// ConfiguredList is one externally configured credential list with the
// account label its entries are stored under.
type ConfiguredList struct {
	AccountLabel string
	Entries      []string
}

// ImportResult summarizes one import pass.
type ImportResult struct {
	Imported int
	Skipped  int // duplicates already stored
	Failed   int
}

// Importer copies externally configured credential lists into the store. It
// is idempotent and designed to run on every pool request: every entry is
// offered to the store, which skips values it already holds, so rows lost to a
// dropped table or an administrative remove come back on the next pass.
type Importer struct {
	credentials driven.CredentialStore
	source      driven.ConfigSource
	metrics     driven.PoolMetrics
	cfg         ImportConfig
	logger      *slog.Logger
}

// NewImporter creates an Importer reading lists from source.
func NewImporter(
	credentials driven.CredentialStore,
	source driven.ConfigSource,
	metrics driven.PoolMetrics,
	cfg ImportConfig,
	logger *slog.Logger,
) *Importer {
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}
	return &Importer{
		credentials: credentials,
		source:      source,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

// Lists returns the configured lists in import order: numbered lists
// ascending, then the primary list. Absent or empty lists are omitted.
func (im *Importer) Lists() []ConfiguredList {
	var lists []ConfiguredList

	for n := 1; n <= im.cfg.MaxNumbered; n++ {
		raw, ok := im.source.Lookup(im.cfg.Prefix + "_" + strconv.Itoa(n))
		if !ok {
			continue
		}
		if entries := splitList(raw, im.cfg.Delimiter); len(entries) > 0 {
			lists = append(lists, ConfiguredList{AccountLabel: model.NumberedAccountLabel(n), Entries: entries})
		}
	}

	if raw, ok := im.source.Lookup(im.cfg.Prefix); ok {
		if entries := splitList(raw, im.cfg.Delimiter); len(entries) > 0 {
			lists = append(lists, ConfiguredList{AccountLabel: model.PrimaryAccountLabel, Entries: entries})
		}
	}

	return lists
}

// ConfiguredValues returns every configured entry in import order with exact
// duplicates removed. It is the fallback when the store has no usable rows.
func (im *Importer) ConfiguredValues() []string {
	var values []string
	seen := make(map[string]struct{})
	for _, list := range im.Lists() {
		for _, entry := range list.Entries {
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			values = append(values, entry)
		}
	}
	return values
}

// Import adds every configured entry not already stored. Duplicates are
// skipped silently and a failing entry never aborts the rest of the batch.
func (im *Importer) Import(ctx context.Context) ImportResult {
	var result ImportResult

	lists := im.Lists()
	if len(lists) == 0 {
		return result
	}

	for _, list := range lists {
		imported := 0
		for _, entry := range list.Entries {
			added, err := im.credentials.Add(ctx, entry, list.AccountLabel, im.cfg.Provider)
			switch {
			case err != nil && !errors.Is(err, driven.ErrEmptyCredential):
				result.Failed++
				im.logger.Warn("credential import entry failed",
					"account", list.AccountLabel,
					"credential", cipherbox.Mask(entry),
					"error", err,
				)
			case added:
				imported++
			default:
				result.Skipped++
			}
		}
		result.Imported += imported
		im.metrics.CredentialsImported(list.AccountLabel, imported)
	}

	if result.Imported > 0 || result.Failed > 0 {
		im.logger.Info("configured credentials imported",
			"provider", im.cfg.Provider,
			"imported", result.Imported,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}

	return result
}

func splitList(raw, delimiter string) []string {
	var entries []string
	for _, part := range strings.Split(raw, delimiter) {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}
