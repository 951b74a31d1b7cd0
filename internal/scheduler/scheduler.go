package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/tmduggan/gordon/internal/progression"
)

type recomputer interface {
	RecomputeAll(ctx context.Context) (*progression.RecomputeAllReport, error)
}

// Scheduler periodically re-runs the batch recompute, so streaks and
// personal-best windows age out without new logs arriving.
type Scheduler struct {
	cron       *cron.Cron
	recomputer recomputer
	timeout    time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates the standard 5-field cron schedule and registers the job.
// Overlapping runs are skipped.
func New(schedule string, recomputer recomputer, timeout time.Duration) (*Scheduler, error) {
	cronLogger := cron.VerbosePrintfLogger(log.StandardLogger())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		recomputer: recomputer,
		timeout:    timeout,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid recompute schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	log.Infof("recompute scheduler started, next run at %s", s.Next())
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Debugln("recompute scheduler stopped")
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes the job synchronously, outside of the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (*progression.RecomputeAllReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.recomputer.RecomputeAll(ctx)
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := s.RunNow(ctx)
	if err != nil {
		log.Errorf("scheduled recompute: %s", err)
		return
	}
	log.WithFields(log.Fields{
		"run_id":     report.RunID,
		"users":      report.Users,
		"recomputed": report.Recomputed,
		"failed":     report.Failed,
	}).Info("scheduled recompute done")
}
