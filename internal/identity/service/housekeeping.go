package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/store"
)

// HousekeepingService periodically clears sign-in codes that expired without
// being used. Verification checks expiry itself; this only stops stale codes
// from lingering in the table.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService creates the worker. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	s.started = true
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished. It is a no-op if
// Start was never called.
func (s *HousekeepingService) Stop() {
	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass and returns the number of codes cleared.
func (s *HousekeepingService) Cleanup() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	n, err := s.Store.Principals().ClearExpiredOTPs(ctx, s.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to clear expired sign-in codes", "error", err)
		return 0
	}
	s.Logger.Debug("housekeeping cleanup completed", "otps_cleared", n)
	return n
}
