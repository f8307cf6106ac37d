package realtime

import (
	"context"
	"sync"

	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Manager owns at most one subscriber per session and per submission id.
// Watching again from a session tears its previous subscriber down first.
type Manager struct {
	transport Transport
	opts      []Option

	mu        sync.Mutex
	bySession map[string]*Subscriber
	owner     map[string]string
}

func NewManager(transport Transport, opts ...Option) *Manager {
	return &Manager{
		transport: transport,
		opts:      opts,
		bySession: make(map[string]*Subscriber),
		owner:     make(map[string]string),
	}
}

// Watch starts a subscriber for submissionID on behalf of sessionID.
func (m *Manager) Watch(ctx context.Context, sessionID, submissionID string, handler Handler, opts ...Option) (*Subscriber, error) {
	m.mu.Lock()
	var stale []*Subscriber
	if prev, ok := m.bySession[sessionID]; ok {
		stale = append(stale, prev)
		delete(m.owner, prev.SubmissionID())
	}
	if otherSession, ok := m.owner[submissionID]; ok && otherSession != sessionID {
		if prev, ok := m.bySession[otherSession]; ok {
			stale = append(stale, prev)
			delete(m.bySession, otherSession)
		}
	}
	all := append(append([]Option{}, m.opts...), opts...)
	sub := NewSubscriber(m.transport, submissionID, handler, all...)
	m.bySession[sessionID] = sub
	m.owner[submissionID] = sessionID
	m.mu.Unlock()

	for _, prev := range stale {
		logger.Debug(ctx, "replacing realtime subscriber", zap.String("previous", prev.SubmissionID()))
		prev.Close()
	}
	if err := sub.Start(ctx); err != nil {
		m.forget(sessionID, sub)
		return nil, err
	}
	go func() {
		<-sub.Done()
		m.forget(sessionID, sub)
	}()
	return sub, nil
}

// Stop tears down the session's subscriber, if any.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	sub, ok := m.bySession[sessionID]
	if ok {
		delete(m.bySession, sessionID)
		delete(m.owner, sub.SubmissionID())
	}
	m.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// StopAll tears down every subscriber.
func (m *Manager) StopAll() {
	m.mu.Lock()
	subs := make([]*Subscriber, 0, len(m.bySession))
	for _, sub := range m.bySession {
		subs = append(subs, sub)
	}
	m.bySession = make(map[string]*Subscriber)
	m.owner = make(map[string]string)
	m.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// Active returns the number of live subscribers.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySession)
}

func (m *Manager) forget(sessionID string, sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bySession[sessionID] == sub {
		delete(m.bySession, sessionID)
		if m.owner[sub.SubmissionID()] == sessionID {
			delete(m.owner, sub.SubmissionID())
		}
	}
}
