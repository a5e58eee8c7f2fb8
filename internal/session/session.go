// Package session tracks the two peers attached to the viewer bridge
// (the control process and the browser), the shared viewer status
// table, and the splash state.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Conn is one attached websocket peer. Implementations must serialize
// their own writes; Send may be called from any goroutine.
type Conn interface {
	ID() string
	Send(data []byte) error
}

// Session is the single shared state of the bridge: the registered
// peers, the viewer status table, and the splash flag. All access goes
// through the mutex.
type Session struct {
	mu      sync.Mutex
	control Conn
	browser Conn
	status  map[string]any
	splash  bool
}

// New creates an empty session with the splash model still pending.
func New() *Session {
	return &Session{
		status: make(map[string]any),
		splash: true,
	}
}

// RegisterControl records conn as the control peer, replacing any
// previous holder. The displaced peer is returned so callers can log
// the takeover; nil when the slot was free.
func (s *Session) RegisterControl(conn Conn) (prev Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.control
	s.control = conn
	return prev
}

// RegisterBrowser records conn as the browser peer, replacing any
// previous holder. The displaced peer is returned; nil when the slot
// was free.
func (s *Session) RegisterBrowser(conn Conn) (prev Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.browser
	s.browser = conn
	return prev
}

// Control returns the registered control peer, or nil.
func (s *Session) Control() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

// Browser returns the registered browser peer, or nil.
func (s *Session) Browser() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// HasBrowser reports whether a browser peer is registered.
func (s *Session) HasBrowser() bool {
	return s.Browser() != nil
}

// SetStatus stores one entry in the viewer status table.
func (s *Session) SetStatus(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[key] = value
}

// MergeStatus merges a browser change set into the status table.
func (s *Session) MergeStatus(changes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range changes {
		s.status[k] = v
	}
}

// Status returns a copy of the status table.
func (s *Session) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

// StatusJSON returns the status table serialized as JSON.
func (s *Session) StatusJSON() ([]byte, error) {
	data, err := json.Marshal(s.Status())
	if err != nil {
		return nil, fmt.Errorf("session: marshal status: %w", err)
	}
	return data, nil
}

// SplashShown reports whether the viewer is still on the splash model,
// i.e. no model has been forwarded to a browser yet.
func (s *Session) SplashShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.splash
}

// ClearSplash marks the splash model as replaced.
func (s *Session) ClearSplash() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splash = false
}
