// Package clipboard abstracts the system clipboard so selected shape
// handles can be pasted straight into the modeling process.
package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// Copier writes text to a clipboard destination.
type Copier interface {
	Copy(text string) error
}

// System copies to the OS clipboard.
type System struct{}

// Copy writes text to the system clipboard.
func (System) Copy(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: copy: %w", err)
	}
	return nil
}

// Noop discards writes. Used on headless hosts where no clipboard
// backend is available.
type Noop struct{}

// Copy discards text.
func (Noop) Copy(string) error { return nil }

// Recorder implements Copier for testing. It records every copy and
// can simulate failures.
type Recorder struct {
	mu    sync.Mutex
	texts []string

	// FailWith, when non-nil, is returned from every Copy call.
	FailWith error
}

// Copy records text, or fails with FailWith when set.
func (r *Recorder) Copy(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.texts = append(r.texts, text)
	return nil
}

// --- Test helpers ---

// Count returns the number of copies recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

// Last returns the most recently copied text.
// Returns empty string and false if nothing has been copied.
func (r *Recorder) Last() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return "", false
	}
	return r.texts[len(r.texts)-1], true
}

// All returns a copy of every recorded text.
func (r *Recorder) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}
