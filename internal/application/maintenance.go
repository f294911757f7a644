package application

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceResult reports what one maintenance cycle did.
type MaintenanceResult struct {
	Reset  bool
	Import ImportResult
}

type maintenanceRequest struct {
	done chan MaintenanceResult
}

// MaintenanceService runs the daily reset check and the configured-list
// import on a fixed interval so a long-lived process keeps its pool current
// even when no collaborator is calling ObtainActive.
type MaintenanceService struct {
	pool     *Pool
	interval time.Duration
	runCh    chan maintenanceRequest
	logger   *slog.Logger
}

// NewMaintenanceService creates a MaintenanceService for pool.
func NewMaintenanceService(pool *Pool, interval time.Duration, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{
		pool:     pool,
		interval: interval,
		runCh:    make(chan maintenanceRequest),
		logger:   logger,
	}
}

// Start runs an immediate cycle, then one per interval. It also serves
// manual RunNow requests. Start blocks until the context is canceled.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance service stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		case req := <-s.runCh:
			req.done <- s.cycle(ctx)
		}
	}
}

// RunNow asks the running service for an immediate cycle and waits for its
// result. It blocks until the cycle completes or ctx is canceled.
func (s *MaintenanceService) RunNow(ctx context.Context) (MaintenanceResult, error) {
	req := maintenanceRequest{done: make(chan MaintenanceResult, 1)}

	select {
	case s.runCh <- req:
	case <-ctx.Done():
		return MaintenanceResult{}, ctx.Err()
	}

	select {
	case result := <-req.done:
		return result, nil
	case <-ctx.Done():
		return MaintenanceResult{}, ctx.Err()
	}
}

func (s *MaintenanceService) cycle(ctx context.Context) MaintenanceResult {
	start := time.Now()
	result := MaintenanceResult{
		Reset:  s.pool.ResetIfNewDay(ctx),
		Import: s.pool.Import(ctx),
	}
	s.logger.Debug("maintenance cycle complete",
		"reset", result.Reset,
		"imported", result.Import.Imported,
		"failed", result.Import.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result
}
