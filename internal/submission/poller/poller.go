// Package poller waits for a submission to settle by fetching it at a fixed interval.
package poller

import (
	"context"
	"time"

	"algocrack/internal/submission/model"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Fetcher loads the current record of a submission.
type Fetcher interface {
	Get(ctx context.Context, submissionID string) (model.Submission, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, submissionID string) (model.Submission, error)

func (f FetcherFunc) Get(ctx context.Context, submissionID string) (model.Submission, error) {
	return f(ctx, submissionID)
}

// Poller repeatedly fetches a submission until it reaches a terminal status.
type Poller struct {
	fetcher  Fetcher
	observer func(model.Submission)
}

// Option configures a Poller.
type Option func(*Poller)

// WithObserver receives every successfully fetched non-terminal record.
func WithObserver(fn func(model.Submission)) Option {
	return func(p *Poller) { p.observer = fn }
}

func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{fetcher: fetcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll sleeps interval before every attempt and returns the first terminal record.
// Fetch errors and records without a status cost an attempt and are otherwise ignored,
// except Unauthorized which aborts.
// After maxAttempts without a terminal status it fails with PollTimeout.
func (p *Poller) Poll(ctx context.Context, submissionID string, maxAttempts int, interval time.Duration) (model.Submission, error) {
	if maxAttempts <= 0 {
		return model.Submission{}, pkgerrors.ValidationError("maxAttempts", "must be positive")
	}
	if interval < 0 {
		interval = 0
	}
	ctx = logger.WithSubmission(ctx, submissionID)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return model.Submission{}, ctx.Err()
		case <-timer.C:
		}

		sub, err := p.fetcher.Get(ctx, submissionID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Submission{}, ctxErr
			}
			if pkgerrors.Is(err, pkgerrors.Unauthorized) {
				return model.Submission{}, err
			}
			logger.Debug(ctx, "poll attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err),
			)
			continue
		}

		if sub.Status == "" {
			logger.Debug(ctx, "poll attempt returned no status", zap.Int("attempt", attempt))
			continue
		}
		if sub.Status.IsTerminal() {
			logger.Debug(ctx, "poll settled", zap.Int("attempt", attempt), zap.String("status", sub.Status.String()))
			return sub, nil
		}
		if p.observer != nil {
			p.observer(sub)
		}
	}

	logger.Warn(ctx, "poll timed out", zap.Int("max_attempts", maxAttempts), zap.Duration("interval", interval))
	return model.Submission{}, pkgerrors.Newf(pkgerrors.PollTimeout,
		"timed out waiting for submission %s after %d attempts", submissionID, maxAttempts).
		WithDetail("submissionId", submissionID).
		WithDetail("attempts", maxAttempts)
}
