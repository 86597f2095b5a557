package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// refreshTimeout bounds a single authority reload
const refreshTimeout = 2 * time.Minute

// Refresher reloads reference data
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs the periodic background jobs
type Scheduler struct {
	cron        *cron.Cron
	authorities Refresher
	spec        string
}

// NewScheduler creates a scheduler that reloads authorities on spec, a cron
// expression or descriptor such as "@every 15m"
func NewScheduler(authorities Refresher, spec string) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		authorities: authorities,
		spec:        spec,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refreshAuthorities); err != nil {
		zap.S().Errorw("failed to register authority refresh job", "spec", s.spec, "error", err)
		return err
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "authorityRefresh", s.spec)
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// refreshAuthorities reloads the directory. A failed reload keeps serving the
// previous snapshot.
func (s *Scheduler) refreshAuthorities() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.authorities.Refresh(ctx); err != nil {
		zap.S().Errorw("authority refresh failed, keeping previous directory", "error", err)
	}
}
