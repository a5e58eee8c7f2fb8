// Package backend holds the viewer's in-process measurement backend:
// the flattened shape index built from loaded models and the tool
// dispatcher answering property and distance queries against it.
package backend

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/geom"
)

// Backend owns the current shape index and the armed measurement tool.
// All shared state sits behind the mutex; the index itself is immutable
// and swapped wholesale on load.
type Backend struct {
	mu         sync.Mutex
	index      *Index
	activeTool string
	center     bool

	out   io.Writer
	debug bool
}

// Opts holds parameters for creating a Backend.
type Opts struct {
	Out   io.Writer // progress output, defaults to os.Stdout
	Debug bool
}

// New creates a Backend with an empty index.
func New(opts Opts) *Backend {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Backend{index: newIndex(), out: out, debug: opts.Debug}
}

// LoadModel rebuilds the shape index from a model tree, replacing the
// previous index wholesale. Failed leaves are logged and skipped; the
// load never fails as a whole.
func (b *Backend) LoadModel(root Node) *LoadReport {
	ix, report := Build(root)

	b.mu.Lock()
	b.index = ix
	b.mu.Unlock()

	fmt.Fprintf(b.out, "backend: %s\n", report.Summary())
	for _, leaf := range report.Failed() {
		log.Printf("backend: leaf %s failed: %v", leaf.ID, leaf.Err)
	}
	if len(report.Untransformed) > 0 {
		log.Printf("backend: handles left in local coordinates: %s",
			strings.Join(report.Untransformed, ", "))
	}
	return report
}

// AvailableShapes returns every registered handle in traversal order.
func (b *Backend) AvailableShapes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.IDs()
}

// ShapeCount returns the number of registered handles.
func (b *Backend) ShapeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Len()
}

// lookup fetches one shape from the current index.
func (b *Backend) lookup(id string) (*geom.Shape, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Get(id)
}

// SetActiveTool arms the given measurement tool. "None" or the empty
// string clears it.
func (b *Backend) SetActiveTool(name string) {
	b.mu.Lock()
	if name == "" || name == "None" {
		b.activeTool = ""
	} else {
		b.activeTool = name
	}
	tool := b.activeTool
	b.mu.Unlock()

	display := tool
	if display == "" {
		display = "None"
	}
	fmt.Fprintf(b.out, "backend: active tool set to %s\n", display)
}

// ActiveTool returns the armed tool name, or empty when none is armed.
func (b *Backend) ActiveTool() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeTool
}

// ApplyUpdates consumes a browser change set: arms or clears the active
// tool, tracks the center-measurement flag, and turns selection changes
// into measurement responses once the armed tool's arity is satisfied.
// A partial selection (one pick with the distance tool armed) produces
// no response; the browser is still collecting picks.
func (b *Backend) ApplyUpdates(changes map[string]any) []Response {
	if tool, ok := changes["activeTool"].(string); ok {
		b.SetActiveTool(tool)
	}
	if center, ok := changes["center"].(bool); ok {
		b.mu.Lock()
		b.center = center
		b.mu.Unlock()
	}

	raw, ok := changes["selected"]
	if !ok {
		return nil
	}
	selected := selectionList(raw)

	b.mu.Lock()
	tool := b.activeTool
	center := b.center
	b.mu.Unlock()
	if tool == "" {
		b.debugf("backend: selection with no tool armed: %v", selected)
		return nil
	}

	switch tool {
	case ToolDistance:
		switch {
		case len(selected) == 2:
			return []Response{b.HandleRequest(Request{
				Tool:   ToolDistance,
				ID1:    selected[0],
				ID2:    selected[1],
				Center: center,
			})}
		case len(selected) > 2:
			return []Response{invalidRequest(tool, len(selected))}
		default:
			return nil
		}
	case ToolProperties:
		if len(selected) == 0 {
			return nil
		}
		return []Response{b.HandleRequest(Request{Tool: ToolProperties, ID1: selected[0]})}
	default:
		return []Response{invalidRequest(tool, len(selected))}
	}
}

// selectionList normalizes the selected value from a change set: a
// JSON list of handles, or a single handle string.
func selectionList(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return vv
	case string:
		return []string{vv}
	default:
		return nil
	}
}

func (b *Backend) debugf(format string, args ...any) {
	if b.debug {
		log.Printf(format, args...)
	}
}
