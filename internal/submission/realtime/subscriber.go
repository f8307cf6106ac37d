package realtime

import (
	"context"
	"sync"
	"time"

	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ConnState is the subscriber lifecycle: idle, connecting, subscribed, closed.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateSubscribed
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// DefaultReconnectDelay is the fixed wait before re-opening a dropped subscription.
const DefaultReconnectDelay = 5 * time.Second

// Handler receives decoded events in arrival order from a single goroutine.
type Handler func(Event)

// StateListener observes state changes. err is the failure that caused a reconnect, if any.
type StateListener func(state ConnState, err error)

// Subscriber keeps one subscription to a submission open until a terminal frame arrives
// or Close is called. Any transport-level drop is followed by a reconnect after a fixed delay.
type Subscriber struct {
	transport    Transport
	submissionID string
	handler      Handler
	delay        time.Duration
	maxRetries   int
	listener     StateListener

	mu     sync.Mutex
	state  ConnState
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Subscriber) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithMaxReconnects stops after n consecutive failed opens. Zero means never give up.
func WithMaxReconnects(n int) Option {
	return func(s *Subscriber) { s.maxRetries = n }
}

// WithStateListener registers l for state changes.
func WithStateListener(l StateListener) Option {
	return func(s *Subscriber) { s.listener = l }
}

func NewSubscriber(transport Transport, submissionID string, handler Handler, opts ...Option) *Subscriber {
	s := &Subscriber{
		transport:    transport,
		submissionID: submissionID,
		handler:      handler,
		delay:        DefaultReconnectDelay,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Subscriber) SubmissionID() string {
	return s.submissionID
}

func (s *Subscriber) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the subscriber reaches StateClosed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Start begins connecting in the background. It may be called once.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle || s.cancel != nil {
		s.mu.Unlock()
		return pkgerrors.Newf(pkgerrors.InvalidValue, "subscriber for %s already started", s.submissionID)
	}
	ctx, cancel := context.WithCancel(logger.WithSubmission(ctx, s.submissionID))
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Close tears the subscription down and waits for it to finish. It is safe in any state
// and may be called more than once.
func (s *Subscriber) Close() {
	s.mu.Lock()
	cancel := s.cancel
	if cancel == nil {
		s.state = StateClosed
		s.cancel = func() {}
		s.mu.Unlock()
		close(s.done)
		return
	}
	s.mu.Unlock()
	cancel()
	<-s.done
}

func (s *Subscriber) setState(ctx context.Context, state ConnState, err error) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	logger.Debug(ctx, "realtime state changed", zap.String("state", state.String()), zap.Error(err))
	if s.listener != nil {
		s.listener(state, err)
	}
}

func (s *Subscriber) run(ctx context.Context) {
	defer close(s.done)

	var policy backoff.BackOff = backoff.NewConstantBackOff(s.delay)
	if s.maxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(s.maxRetries))
	}
	policy = backoff.WithContext(policy, ctx)

	var lastErr error
	for {
		s.setState(ctx, StateConnecting, lastErr)
		stream, err := s.transport.Open(ctx, s.submissionID)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			lastErr = pkgerrors.Wrapf(err, pkgerrors.RealtimeUnavailable, "open subscription failed: %v", err)
			logger.Warn(ctx, "realtime subscribe failed", zap.Error(err))
			if !s.wait(ctx, policy) {
				break
			}
			continue
		}

		policy.Reset()
		s.setState(ctx, StateSubscribed, nil)
		terminal := s.consume(ctx, stream)
		streamErr := stream.Err()
		_ = stream.Close()
		if terminal || ctx.Err() != nil {
			lastErr = nil
			break
		}

		lastErr = pkgerrors.New(pkgerrors.RealtimeClosed)
		if streamErr != nil {
			lastErr = pkgerrors.Wrapf(streamErr, pkgerrors.RealtimeClosed, "subscription dropped: %v", streamErr)
		}
		logger.Info(ctx, "realtime connection lost, reconnecting", zap.Duration("delay", s.delay), zap.Error(streamErr))
		if !s.wait(ctx, policy) {
			break
		}
	}
	s.setState(ctx, StateClosed, lastErr)
}

// wait sleeps for the next backoff interval. It returns false when retries are exhausted
// or ctx is done.
func (s *Subscriber) wait(ctx context.Context, policy backoff.BackOff) bool {
	next := policy.NextBackOff()
	if next == backoff.Stop {
		return false
	}
	timer := time.NewTimer(next)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// consume dispatches frames until the stream ends, ctx is done or a terminal frame arrives.
func (s *Subscriber) consume(ctx context.Context, stream Stream) bool {
	messages := stream.Messages()
	for {
		select {
		case <-ctx.Done():
			return false
		case body, ok := <-messages:
			if !ok {
				return false
			}
			ev, ok, err := Decode(body)
			if err != nil {
				logger.Warn(ctx, "drop malformed realtime frame", zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			if ev.SubmissionID == "" {
				ev.SubmissionID = s.submissionID
			}
			if s.handler != nil {
				s.handler(ev)
			}
			if ev.Terminal() {
				return true
			}
		}
	}
}
