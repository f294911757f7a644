// Package commands implements the credpoolctl subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	sqliteadapter "github.com/ericfisherdev/credpool/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/credpool/internal/application"
	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/config"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// App carries the state shared by every subcommand. It is populated by the
// root command's persistent flags before any subcommand runs.
type App struct {
	DBPath string
	Debug  bool
	Logger *slog.Logger

	// Source overrides where configured credential lists are read from.
	// Nil means the process environment.
	Source driven.ConfigSource
}

// session is one opened pool plus the store behind it.
type session struct {
	cfg   *config.Config
	db    *sqliteadapter.DB
	store *sqliteadapter.CredentialRepo
	pool  *application.Pool
}

func (s *session) Close() error {
	return s.db.Close()
}

// NewLogger returns the CLI logger. Diagnostics go to stderr so command
// output on stdout stays parseable.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// open loads configuration and opens the pool over the configured database.
// A non-empty --db flag overrides CREDPOOL_DB_PATH.
func (a *App) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if a.DBPath != "" {
		cfg.DBPath = a.DBPath
	}

	logger := a.Logger
	if logger == nil {
		logger = NewLogger(os.Stderr, a.Debug)
	}

	box, err := cipherbox.New(cfg.MasterKey, logger, nil)
	if err != nil {
		return nil, err
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}

	source := a.Source
	if source == nil {
		source = config.EnvSource{}
	}

	store := sqliteadapter.NewCredentialRepo(db, box)
	pool := application.NewPool(ctx, application.PoolDeps{
		Credentials: store,
		State:       sqliteadapter.NewStateRepo(db),
		Source:      source,
		Logger:      logger,
	}, application.PoolConfig{
		Provider:      cfg.Provider,
		KeyListPrefix: cfg.KeyListPrefix,
		KeyDelimiter:  cfg.KeyDelimiter,
		MaxNumbered:   cfg.MaxNumberedLists,
		ResetLocation: cfg.ResetLocation,
	})

	return &session{cfg: cfg, db: db, store: store, pool: pool}, nil
}

// withSession opens a session, runs fn and closes the session.
func (a *App) withSession(ctx context.Context, fn func(*session) error) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Warn("error closing database", "error", closeErr)
		}
	}()
	return fn(s)
}
