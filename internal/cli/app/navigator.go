package app

import (
	"net/url"
	"strings"
	"sync"
)

// Navigator tracks the command being executed and the sign-in target recorded by the
// last 401, so the command can be replayed after login.
type Navigator struct {
	mu       sync.Mutex
	location string
	pending  string
}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// SetLocation records the current command line.
func (n *Navigator) SetLocation(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = line
}

// Location is sent as the sign-in "next" parameter.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Redirect receives the sign-in target after a 401.
func (n *Navigator) Redirect(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = target
}

// Pending reports whether a sign-in redirect is outstanding.
func (n *Navigator) Pending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending != ""
}

// TakeNext clears the pending redirect and returns its "next" command. A next of "/"
// or one naming a sign-in command is not replayed.
func (n *Navigator) TakeNext() (string, bool) {
	n.mu.Lock()
	target := n.pending
	n.pending = ""
	n.mu.Unlock()
	if target == "" {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	next := strings.TrimSpace(u.Query().Get("next"))
	if next == "" || next == "/" || strings.HasPrefix(next, "login") {
		return "", false
	}
	return next, true
}
