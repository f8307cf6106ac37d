package store

import "sync"

// Sessions keeps one State per editor session so sessions never share a record.
type Sessions struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewSessions() *Sessions {
	return &Sessions{states: make(map[string]*State)}
}

// Get returns the session's State, creating it on first use.
func (s *Sessions) Get(sessionID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sessionID]
	if !ok {
		st = New()
		s.states[sessionID] = st
	}
	return st
}

// Drop resets and forgets the session's State.
func (s *Sessions) Drop(sessionID string) {
	s.mu.Lock()
	st, ok := s.states[sessionID]
	delete(s.states, sessionID)
	s.mu.Unlock()
	if ok {
		st.Reset()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
