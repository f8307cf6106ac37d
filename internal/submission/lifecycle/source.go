// Package lifecycle drives a run or submission from request to settled state.
package lifecycle

import (
	"context"
	"time"

	"algocrack/internal/submission/model"
	"algocrack/internal/submission/poller"
	"algocrack/internal/submission/realtime"
	"algocrack/internal/submission/store"
	pkgerrors "algocrack/pkg/errors"
)

// UpdateKind classifies an Update.
type UpdateKind int

const (
	UpdateStatus UpdateKind = iota
	UpdateResult
	UpdateError
	UpdateCancelled
)

// Update is one write produced by a Source, stamped before the data behind it was requested.
type Update struct {
	Stamp   store.Stamp
	Kind    UpdateKind
	Status  model.Status
	Result  model.Result
	Message string
}

// Settles reports whether the update ends the submission.
func (u Update) Settles() bool {
	return u.Kind != UpdateStatus
}

// Stamper issues stamps. *store.State implements it.
type Stamper interface {
	Stamp() store.Stamp
}

// Target names the submission being followed and the session following it.
type Target struct {
	SessionID    string
	SubmissionID string
}

// Source delivers updates for one submission. Follow returns nil once it has emitted a
// settling update, ctx.Err() when cancelled, or the failure that stopped it.
type Source interface {
	Follow(ctx context.Context, target Target, stamper Stamper, emit func(Update)) error
}

// FromSubmission converts a fetched record.
func FromSubmission(sub model.Submission, stamp store.Stamp) Update {
	u := Update{Stamp: stamp, Status: sub.Status}
	switch {
	case sub.Status.IsFailure():
		u.Kind = UpdateError
		u.Message = sub.FailureMessage()
	case sub.Status == model.StatusCompleted:
		u.Kind = UpdateResult
		u.Result = sub.Result()
	case sub.Status == model.StatusCancelled:
		u.Kind = UpdateCancelled
	default:
		u.Kind = UpdateStatus
	}
	return u
}

// FromEvent converts a realtime event.
func FromEvent(ev realtime.Event, stamp store.Stamp) Update {
	u := Update{Stamp: stamp, Status: ev.Status}
	switch {
	case ev.Kind == realtime.EventError:
		u.Kind = UpdateError
		u.Message = ev.Message
	case ev.Kind == realtime.EventResult:
		u.Kind = UpdateResult
		u.Result = ev.Result
	case ev.Status == model.StatusCancelled:
		u.Kind = UpdateCancelled
	default:
		u.Kind = UpdateStatus
	}
	return u
}

// Apply writes u into st.
func Apply(st *store.State, u Update) error {
	switch u.Kind {
	case UpdateResult:
		return st.ApplyResults(u.Stamp, u.Result)
	case UpdateError:
		return st.ApplyError(u.Stamp, u.Message)
	case UpdateCancelled:
		return st.ApplyCancelled(u.Stamp)
	default:
		return st.ApplyStatus(u.Stamp, u.Status)
	}
}

// PollSource follows a submission by fetching it at a fixed interval.
type PollSource struct {
	fetcher  poller.Fetcher
	attempts int
	interval time.Duration
}

func NewPollSource(fetcher poller.Fetcher, attempts int, interval time.Duration) *PollSource {
	return &PollSource{fetcher: fetcher, attempts: attempts, interval: interval}
}

func (s *PollSource) Follow(ctx context.Context, target Target, stamper Stamper, emit func(Update)) error {
	// Fetch and observer run on the poller's goroutine, one after the other.
	var pending store.Stamp
	fetch := poller.FetcherFunc(func(ctx context.Context, id string) (model.Submission, error) {
		pending = stamper.Stamp()
		return s.fetcher.Get(ctx, id)
	})
	p := poller.New(fetch, poller.WithObserver(func(sub model.Submission) {
		emit(FromSubmission(sub, pending))
	}))

	sub, err := p.Poll(ctx, target.SubmissionID, s.attempts, s.interval)
	if err != nil {
		return err
	}
	emit(FromSubmission(sub, pending))
	return nil
}

// DefaultRealtimeRetries bounds reconnects before the realtime source reports failure.
const DefaultRealtimeRetries = 3

// RealtimeSource follows a submission through a realtime.Manager.
type RealtimeSource struct {
	manager *realtime.Manager
	opts    []realtime.Option
}

// NewRealtimeSource uses manager for subscriptions. opts are appended to
// WithMaxReconnects(DefaultRealtimeRetries).
func NewRealtimeSource(manager *realtime.Manager, opts ...realtime.Option) *RealtimeSource {
	all := append([]realtime.Option{realtime.WithMaxReconnects(DefaultRealtimeRetries)}, opts...)
	return &RealtimeSource{manager: manager, opts: all}
}

func (s *RealtimeSource) Follow(ctx context.Context, target Target, stamper Stamper, emit func(Update)) error {
	var (
		settled bool
		lastErr error
	)
	handler := func(ev realtime.Event) {
		u := FromEvent(ev, stamper.Stamp())
		if u.Settles() {
			settled = true
		}
		emit(u)
	}
	listener := realtime.WithStateListener(func(state realtime.ConnState, err error) {
		if state == realtime.StateClosed {
			lastErr = err
		}
	})

	opts := append(append([]realtime.Option{}, s.opts...), listener)
	sub, err := s.manager.Watch(ctx, target.SessionID, target.SubmissionID, handler, opts...)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.RealtimeUnavailable)
	}

	select {
	case <-ctx.Done():
		sub.Close()
		return ctx.Err()
	case <-sub.Done():
	}
	// handler and listener both ran on the subscriber goroutine, which has exited.
	switch {
	case settled:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case lastErr != nil:
		return lastErr
	default:
		return pkgerrors.New(pkgerrors.RealtimeClosed)
	}
}
