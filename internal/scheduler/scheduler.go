package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/service/expiry"
)

// Sweeper runs one expiry sweep.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (expiry.Report, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler running the sweep in the configured timezone.
func NewScheduler(cfg config.ExpiryConfig, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		schedule: cfg.CronSchedule,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the expiry sweep and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.sweeper.Run(ctx, s.now())
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("expiry sweep finished",
		zap.Int("expired", len(report.Expired)),
		zap.Bool("notified", report.Notified),
		zap.Bool("exported", report.Exported))
}
