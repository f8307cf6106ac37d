package realtime_test

import (
	"context"
	"errors"
	"sync"

	"algocrack/internal/submission/realtime"
)

// fakeStream is driven by the test through push and drop.
type fakeStream struct {
	out       chan []byte
	mu        sync.Mutex
	err       error
	closed    bool
	closeOnce sync.Once
	ended     sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{out: make(chan []byte, 16)}
}

func (s *fakeStream) push(body string) {
	s.out <- []byte(body)
}

// drop ends the stream as a broken connection would.
func (s *fakeStream) drop(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.ended.Do(func() { close(s.out) })
}

func (s *fakeStream) Messages() <-chan []byte { return s.out }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeTransport hands out queued streams; an empty queue fails the open.
type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeStream
	opened  []string
	opens   chan string
}

func newFakeTransport(streams ...*fakeStream) *fakeTransport {
	return &fakeTransport{streams: streams, opens: make(chan string, 32)}
}

func (t *fakeTransport) Open(ctx context.Context, submissionID string) (realtime.Stream, error) {
	t.mu.Lock()
	t.opened = append(t.opened, submissionID)
	var s *fakeStream
	if len(t.streams) > 0 {
		s = t.streams[0]
		t.streams = t.streams[1:]
	}
	t.mu.Unlock()
	t.opens <- submissionID
	if s == nil {
		return nil, errors.New("broker unavailable")
	}
	return s, nil
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.opened)
}

// eventLog collects handler calls.
type eventLog struct {
	mu     sync.Mutex
	events []realtime.Event
	ch     chan realtime.Event
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan realtime.Event, 32)}
}

func (l *eventLog) handle(ev realtime.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	l.ch <- ev
}

func (l *eventLog) all() []realtime.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]realtime.Event(nil), l.events...)
}
