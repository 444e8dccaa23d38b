package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"golang.org/x/sync/singleflight"
)

const DefaultAccountTimeout = 15 * time.Second

// Report summarizes one sweep.
type Report struct {
	Checked      int
	Expired      int
	Notified     int
	NotifyFailed int
	Skipped      int
	Errors       []error
	Aborted      bool
	Took         time.Duration
}

// Sweeper demotes lapsed accounts and tells their owners.
type Sweeper struct {
	repository     Repository
	notifier       Notifier
	accountTimeout time.Duration
	group          singleflight.Group
}

func NewSweeper(repository Repository, notifier Notifier, accountTimeout time.Duration) *Sweeper {
	if accountTimeout <= 0 {
		accountTimeout = DefaultAccountTimeout
	}
	return &Sweeper{
		repository:     repository,
		notifier:       notifier,
		accountTimeout: accountTimeout,
	}
}

// Sweep runs one pass. Calls that overlap an in-flight pass share its report.
// Cancelling ctx lets the current account finish and abandons the rest.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Report, error) {
	v, err, shared := s.group.Do("sweep", func() (any, error) {
		return s.run(ctx, now)
	})
	if shared {
		slog.Debug("Joined in-flight expiry sweep", slog.String("type", "sys"))
	}
	report, _ := v.(Report)
	return report, err
}

func (s *Sweeper) run(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	var report Report

	lapsed, err := s.repository.ListLapsed(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to list lapsed accounts: %w", err)
	}

	for _, account := range lapsed {
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}
		report.Checked++

		if !subscription.IsExpired(account, now) {
			report.Skipped++
			continue
		}
		s.expireOne(ctx, account, now, &report)
	}

	report.Took = time.Since(start)
	slog.Info("Expiry sweep finished",
		slog.String("type", "sys"),
		slog.String("component", "expiry_sweeper"),
		slog.Int("checked", report.Checked),
		slog.Int("expired", report.Expired),
		slog.Int("notify_failed", report.NotifyFailed),
		slog.Int("errors", len(report.Errors)),
		slog.Bool("aborted", report.Aborted),
		slog.Duration("took", report.Took))

	if report.Aborted {
		return report, ctx.Err()
	}
	return report, nil
}

// expireOne is not interrupted by shutdown once started.
func (s *Sweeper) expireOne(ctx context.Context, account subscription.Account, now time.Time, report *Report) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.accountTimeout)
	defer cancel()

	changed, err := s.repository.Expire(actx, account.ID, now)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("expire %s: %w", account.ID, err))
		slog.Error("Failed to expire account",
			slog.String("type", "db"),
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return
	}
	if !changed {
		report.Skipped++
		return
	}
	report.Expired++

	if err := s.notifier.NotifyExpired(actx, account.ID, account.EndOrZero()); err != nil {
		report.NotifyFailed++
		slog.Warn("Expiry notification not delivered",
			slog.String("type", "sys"),
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return
	}
	report.Notified++
}
