package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	metricsadapter "github.com/ericfisherdev/credpool/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/credpool/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/credpool/internal/adapter/driving/http"
	"github.com/ericfisherdev/credpool/internal/application"
	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Wipe the cipher box key enclave on exit.
	defer memguard.Purge()

	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"provider", cfg.Provider,
		"key_list_prefix", cfg.KeyListPrefix,
		"reset_timezone", cfg.ResetLocation.String(),
		"maintenance_interval", cfg.MaintenanceInterval,
		"master_key_set", cfg.HasMasterKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	poolMetrics := metricsadapter.NewPoolMetrics(reg)

	// 4. Cipher box (warns when running on the placeholder key).
	box, err := cipherbox.New(cfg.MasterKey, slog.Default(), poolMetrics)
	if err != nil {
		return err
	}

	// 5. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 6. Wire adapters and the pool. NewPool applies migrations.
	credentialStore := sqliteadapter.NewCredentialRepo(db, box)
	stateStore := sqliteadapter.NewStateRepo(db)

	pool := application.NewPool(ctx, application.PoolDeps{
		Credentials: credentialStore,
		State:       stateStore,
		Source:      config.EnvSource{},
		Metrics:     poolMetrics,
		Logger:      slog.Default(),
	}, application.PoolConfig{
		Provider:      cfg.Provider,
		KeyListPrefix: cfg.KeyListPrefix,
		KeyDelimiter:  cfg.KeyDelimiter,
		MaxNumbered:   cfg.MaxNumberedLists,
		ResetLocation: cfg.ResetLocation,
	})

	// 7. Background reset check and import.
	maintenanceSvc := application.NewMaintenanceService(pool, cfg.MaintenanceInterval, slog.Default())
	go maintenanceSvc.Start(ctx)

	// 8. HTTP admin API.
	apiHandler := httphandler.NewHandler(credentialStore, maintenanceSvc, cfg.Provider, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("credpool started",
		"listen_addr", cfg.ListenAddr,
		"provider", cfg.Provider,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
