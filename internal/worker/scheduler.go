package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/chittyos/registry-sync/internal/pkg/logger"
)

// Scheduler runs periodic full syncs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// NewScheduler creates an idle scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
	}
}

// AddSync registers fn to run on the given cron spec (e.g. "0 * * * *").
func (s *Scheduler) AddSync(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"schedule": spec,
	}).Info("Periodic sync scheduled")
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish, bounded by
// ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}
