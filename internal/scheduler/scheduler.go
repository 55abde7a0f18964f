// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/axiomhub/axiom-gateway/internal/config"
	"github.com/axiomhub/axiom-gateway/internal/metrics"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

// Scheduler manages cron jobs for store maintenance
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler wired to the session store
func NewScheduler(st store.Store, cfg config.ChatConfig, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:      cron.New(),
		store:     st,
		retention: cfg.GetRetention(),
		logger:    logger,
	}
	s.schedulePrune()
	return s
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// schedulePrune drops sessions idle past the retention window, hourly
func (s *Scheduler) schedulePrune() {
	_, err := s.cron.AddFunc("0 * * * *", s.prune)
	if err != nil {
		s.logger.Error("failed to schedule session prune", "error", err)
	}
}

func (s *Scheduler) prune() {
	cutoff := time.Now().Add(-s.retention)
	pruned, err := s.store.PruneIdleSessions(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("session prune failed", "error", err)
		return
	}
	if pruned > 0 {
		metrics.ActiveSessions.Sub(float64(pruned))
		s.logger.Info("pruned idle sessions", "count", pruned)
	}
}
