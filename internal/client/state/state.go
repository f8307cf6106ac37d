package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenState stores the signed-in session.
type TokenState struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token has a known expiry in the past.
func (s TokenState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func Load(path string) (TokenState, error) {
	var st TokenState
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read token state failed: %w", err)
	}
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse token state failed: %w", err)
	}
	return st, nil
}

func Save(path string, st TokenState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token state failed: %w", err)
	}
	return nil
}

// TokenStore is the persisted session shared by every service client.
// An empty path keeps the state in memory only.
type TokenStore struct {
	mu    sync.RWMutex
	path  string
	state TokenState
}

// Open loads the state file at path.
func Open(path string) (*TokenStore, error) {
	st, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &TokenStore{path: path, state: st}, nil
}

// NewMemory returns a store that never touches disk.
func NewMemory(st TokenState) *TokenStore {
	return &TokenStore{state: st}
}

// Token returns the bearer token, or "" when signed out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// State returns a copy of the current session.
func (s *TokenStore) State() TokenState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the session and persists it.
func (s *TokenStore) Set(st TokenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	if s.path == "" {
		return nil
	}
	return Save(s.path, st)
}

// Clear drops the session and removes the state file.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = TokenState{}
	if s.path == "" {
		return nil
	}
	return Clear(s.path)
}

// Path returns the backing file, "" for memory stores.
func (s *TokenStore) Path() string {
	return s.path
}
