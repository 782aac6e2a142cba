/**
 * @description
 * Cron-driven background refresh of the ledger. It only runs while a session
 * is authenticated, so an idle or logged-out gateway never calls the backend.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/transfa/wallet-gateway/pkg/session"
)

// Syncer periodically refreshes the account and transactions.
type Syncer struct {
	cron     *cron.Cron
	store    *Store
	schedule string
	logger   *slog.Logger
}

// NewSyncer creates a syncer for schedule. An empty schedule disables it.
func NewSyncer(store *Store, schedule string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Syncer{
		cron:     c,
		store:    store,
		schedule: schedule,
		logger:   logger.With("component", "ledger_syncer"),
	}
}

// Start registers the refresh job and starts the scheduler.
func (s *Syncer) Start() {
	if s.schedule == "" {
		s.logger.Info("ledger sync disabled")
		return
	}
	if _, err := s.cron.AddFunc(s.schedule, s.Sync); err != nil {
		s.logger.Error("failed to schedule ledger sync", "error", err, "schedule", s.schedule)
		return
	}
	s.logger.Info("scheduled ledger sync", "schedule", s.schedule)
	s.cron.Start()
}

// Sync runs one refresh if a session is authenticated.
func (s *Syncer) Sync() {
	if s.store.SessionState() != session.StateAuthenticated {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.store.RefreshAccount(ctx); err != nil {
		s.logger.Warn("ledger sync failed", "error", err)
	}
}

// Stop stops the scheduler; the returned context is done once a running job
// finishes.
func (s *Syncer) Stop() context.Context {
	return s.cron.Stop()
}
