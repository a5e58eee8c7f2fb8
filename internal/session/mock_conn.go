package session

import "sync"

// MockConn implements Conn for testing. It records sent frames and can
// simulate send failures.
type MockConn struct {
	mu   sync.Mutex
	id   string
	sent [][]byte

	// FailWith, when non-nil, is returned from every Send call.
	FailWith error
}

// NewMockConn creates a MockConn with the given id.
func NewMockConn(id string) *MockConn {
	return &MockConn{id: id}
}

// ID returns the connection id.
func (m *MockConn) ID() string {
	return m.id
}

// Send records the frame, or fails with FailWith when set.
func (m *MockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.sent = append(m.sent, buf)
	return nil
}

// --- Test helpers ---

// SentCount returns the number of frames sent.
func (m *MockConn) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// LastSent returns the most recently sent frame.
// Returns nil and false if nothing has been sent.
func (m *MockConn) LastSent() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil, false
	}
	return m.sent[len(m.sent)-1], true
}

// AllSent returns a copy of all sent frames.
func (m *MockConn) AllSent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}
