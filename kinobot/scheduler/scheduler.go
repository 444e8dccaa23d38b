package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/expiry"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/robfig/cron/v3"
)

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) (expiry.Report, error)
}

// Scheduler runs the expiry sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper sweeper
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

func New(sweeper sweeper, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		sweeper: sweeper,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Start registers the sweep and starts the cron loop. The schedule accepts
// standard five-field specs and descriptors such as "@daily" or "@every 1h".
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	slog.Info("Scheduled expiry sweep",
		slog.String("type", "sys"),
		slog.String("component", "scheduler"),
		slog.String("schedule", schedule))
	return nil
}

// RunOnce performs one sweep bounded by SweepRunTimeout.
func (s *Scheduler) RunOnce() (expiry.Report, error) {
	ctx, cancel := context.WithTimeout(s.ctx, config.SweepRunTimeout)
	defer cancel()

	report, err := s.sweeper.Sweep(ctx, s.now())
	if err != nil {
		slog.Error("Expiry sweep failed",
			slog.String("type", "sys"),
			slog.String("component", "scheduler"),
			slog.Bool("aborted", report.Aborted),
			slog.Any("error", err))
	}
	return report, err
}

// Stop cancels an in-flight sweep between accounts and waits for it to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
