package lifecycle

import (
	"context"
	"sync"
	"time"

	"algocrack/internal/submission/store"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFallbackAfter is how long realtime may stay silent before polling starts.
const DefaultFallbackAfter = 10 * time.Second

// Coordinator follows a submission with realtime first and polling as the fallback.
// Polling starts when realtime fails or stays silent for the fallback window. The first
// settling update wins and stops the other source; any later write is rejected by the
// state as settled or stale.
type Coordinator struct {
	realtime      Source
	poll          Source
	fallbackAfter time.Duration
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRealtime sets the preferred source. Without one the coordinator polls immediately.
func WithRealtime(src Source) CoordinatorOption {
	return func(c *Coordinator) { c.realtime = src }
}

// WithFallbackAfter overrides DefaultFallbackAfter.
func WithFallbackAfter(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d >= 0 {
			c.fallbackAfter = d
		}
	}
}

func NewCoordinator(poll Source, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{poll: poll, fallbackAfter: DefaultFallbackAfter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Follow writes updates for target into st until one settles it. It returns nil once
// settled. When st rejects a settling update, or is settled by another writer, Follow
// stops with the state's error. Otherwise it returns the error that stopped the last
// source, or SubmissionUnsettled if the sources ended without a final result.
func (c *Coordinator) Follow(ctx context.Context, target Target, st *store.State) error {
	parent := logger.WithSubmission(logger.WithSession(ctx, target.SessionID), target.SubmissionID)
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		settleOnce   sync.Once
		settled      = make(chan struct{})
		heardOnce    sync.Once
		heard        = make(chan struct{})
		failed       = make(chan struct{})
		realtimeDone = make(chan struct{})
		dropMu       sync.Mutex
		dropErr      error
	)
	apply := func(source string) func(Update) {
		return func(u Update) {
			if err := Apply(st, u); err != nil {
				logger.Debug(ctx, "update dropped", zap.String("source", source), zap.Error(err))
				if u.Settles() || pkgerrors.Is(err, pkgerrors.SubmissionSettled) {
					dropMu.Lock()
					if dropErr == nil {
						dropErr = err
					}
					dropMu.Unlock()
					cancel()
				}
				return
			}
			if u.Settles() {
				logger.Info(ctx, "submission settled", zap.String("source", source), zap.String("status", u.Status.String()))
				settleOnce.Do(func() {
					close(settled)
					cancel()
				})
			}
		}
	}
	isSettled := func() bool {
		select {
		case <-settled:
			return true
		default:
			return false
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.realtime != nil {
		pushed := apply("realtime")
		g.Go(func() error {
			defer close(realtimeDone)
			err := c.realtime.Follow(gctx, target, st, func(u Update) {
				heardOnce.Do(func() { close(heard) })
				pushed(u)
			})
			if err != nil && gctx.Err() == nil {
				logger.Warn(ctx, "realtime updates unavailable, falling back to polling", zap.Error(err))
				close(failed)
			}
			return nil
		})
	}
	g.Go(func() error {
		if c.realtime != nil && !c.awaitFallback(gctx, heard, failed, realtimeDone) {
			return nil
		}
		if isSettled() || gctx.Err() != nil {
			return nil
		}
		err := c.poll.Follow(gctx, target, st, apply("poll"))
		if err != nil && isSettled() {
			return nil
		}
		return err
	})

	err := g.Wait()
	dropMu.Lock()
	dropped := dropErr
	dropMu.Unlock()
	switch {
	case isSettled():
		return nil
	case dropped != nil:
		return dropped
	case err != nil:
		return err
	case parent.Err() != nil:
		return parent.Err()
	default:
		logger.Warn(ctx, "sources ended without a final result")
		return pkgerrors.New(pkgerrors.SubmissionUnsettled).WithDetail("submissionId", target.SubmissionID)
	}
}

// awaitFallback blocks until polling should start. It returns false if ctx ended first.
// Polling starts when realtime fails, stays silent for the fallback window, or ends.
func (c *Coordinator) awaitFallback(ctx context.Context, heard, failed, done <-chan struct{}) bool {
	timer := time.NewTimer(c.fallbackAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-failed:
		return true
	case <-done:
		return true
	case <-timer.C:
		logger.Info(ctx, "no realtime update within fallback window, polling", zap.Duration("window", c.fallbackAfter))
		return true
	case <-heard:
	}
	select {
	case <-ctx.Done():
		return false
	case <-failed:
		return true
	case <-done:
		logger.Info(ctx, "realtime ended without a final result, polling")
		return true
	}
}
