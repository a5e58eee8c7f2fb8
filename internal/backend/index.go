package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/geom"
)

// Node is one entry in the hierarchical model tree: a group holding
// parts, or a leaf carrying encoded geometry and an optional placement.
// A node is a group exactly when its "parts" key is present.
type Node struct {
	ID    string          `json:"id"`
	Parts []Node          `json:"parts"`
	Shape json.RawMessage `json:"shape"`
	Loc   [][]float64     `json:"loc"`
}

// isGroup mirrors the tree convention: the presence of "parts" makes a
// node a group, even when the list is empty.
func (n Node) isGroup() bool {
	return n.Parts != nil
}

// transform builds the leaf placement from its "loc" entry. A missing
// entry is the identity placement.
func (n Node) transform() (geom.Transform, error) {
	if n.Loc == nil {
		return geom.Identity(), nil
	}
	if len(n.Loc) != 2 {
		return geom.Transform{}, fmt.Errorf("backend: leaf %s: loc needs [translation, quaternion], got %d entries", n.ID, len(n.Loc))
	}
	tr, err := geom.NewTransform(n.Loc[0], n.Loc[1])
	if err != nil {
		return geom.Transform{}, fmt.Errorf("backend: leaf %s: %w", n.ID, err)
	}
	return tr, nil
}

// DecodeModel parses a backend request payload of the form
// {"model": <tree>}.
func DecodeModel(payload []byte) (Node, error) {
	var req struct {
		Model *Node `json:"model"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return Node{}, fmt.Errorf("backend: parse model request: %w", err)
	}
	if req.Model == nil {
		return Node{}, fmt.Errorf("backend: model request carries no model")
	}
	return *req.Model, nil
}

// Index is the flattened lookup table from shape handle to placed
// shape. Handles keep insertion (traversal) order for deterministic
// listing. An Index is immutable once built.
type Index struct {
	shapes map[string]*geom.Shape
	order  []string
}

func newIndex() *Index {
	return &Index{shapes: make(map[string]*geom.Shape)}
}

func (ix *Index) add(id string, s *geom.Shape) {
	if _, exists := ix.shapes[id]; !exists {
		ix.order = append(ix.order, id)
	}
	ix.shapes[id] = s
}

// Get returns the shape registered under id.
func (ix *Index) Get(id string) (*geom.Shape, bool) {
	s, ok := ix.shapes[id]
	return s, ok
}

// IDs returns all handles in traversal order.
func (ix *Index) IDs() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Len returns the number of registered handles.
func (ix *Index) Len() int {
	return len(ix.order)
}

// LeafReport records the outcome of indexing one leaf.
type LeafReport struct {
	ID       string
	Entities int
	Err      error
}

// LoadReport summarizes one model load: per-leaf outcomes, the total
// handle count, and the handles left in local coordinates because their
// representation does not support placement.
type LoadReport struct {
	Leaves        []LeafReport
	Entities      int
	Untransformed []string
}

func (r *LoadReport) fail(id string, err error) {
	r.Leaves = append(r.Leaves, LeafReport{ID: id, Err: err})
}

// Failed returns the leaves that could not be indexed.
func (r *LoadReport) Failed() []LeafReport {
	var out []LeafReport
	for _, l := range r.Leaves {
		if l.Err != nil {
			out = append(out, l)
		}
	}
	return out
}

// PartCount returns the number of leaves successfully indexed.
func (r *LoadReport) PartCount() int {
	n := 0
	for _, l := range r.Leaves {
		if l.Err == nil {
			n++
		}
	}
	return n
}

// Summary renders the one-line load summary for the progress log.
func (r *LoadReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model loaded with %d objects from %d parts", r.Entities, r.PartCount())
	if failed := len(r.Failed()); failed > 0 {
		fmt.Fprintf(&b, ", %d parts failed", failed)
	}
	if len(r.Untransformed) > 0 {
		fmt.Fprintf(&b, ", %d handles untransformed", len(r.Untransformed))
	}
	return b.String()
}

// Build walks the model tree and produces a fresh index. Every leaf
// registers its own handle plus one handle per face, edge, and vertex,
// all in traversal order. Leaves that fail to decode are recorded in
// the report and skipped; the rest of the tree still loads.
func Build(root Node) (*Index, *LoadReport) {
	ix := newIndex()
	report := &LoadReport{}
	walk(root, ix, report)
	report.Entities = ix.Len()
	return ix, report
}

func walk(n Node, ix *Index, report *LoadReport) {
	for _, child := range n.Parts {
		if child.isGroup() {
			walk(child, ix, report)
			continue
		}
		indexLeaf(child, ix, report)
	}
}

// indexLeaf decodes one leaf and registers the placed shape and its
// sub-entities. Sub-entities are enumerated from the shape in local
// coordinates and placed one by one; entities that do not support the
// placement stay local and are flagged in the report.
func indexLeaf(leaf Node, ix *Index, report *LoadReport) {
	tr, err := leaf.transform()
	if err != nil {
		report.fail(leaf.ID, err)
		return
	}
	base, err := decodeLeafShape(leaf.Shape)
	if err != nil {
		report.fail(leaf.ID, fmt.Errorf("backend: leaf %s: %w", leaf.ID, err))
		return
	}

	before := ix.Len()
	ix.add(leaf.ID, place(tr, base, leaf.ID, report))
	for i, face := range geom.FacesOf(base) {
		id := fmt.Sprintf("%s/faces/faces_%d", leaf.ID, i)
		ix.add(id, place(tr, face, id, report))
	}
	for i, edge := range geom.EdgesOf(base) {
		id := fmt.Sprintf("%s/edges/edges_%d", leaf.ID, i)
		ix.add(id, place(tr, edge, id, report))
	}
	for i, vertex := range geom.VerticesOf(base) {
		id := fmt.Sprintf("%s/vertices/vertex_%d", leaf.ID, i)
		ix.add(id, place(tr, vertex, id, report))
	}
	report.Leaves = append(report.Leaves, LeafReport{ID: leaf.ID, Entities: ix.Len() - before})
}

// place applies the leaf placement to one shape. Shapes that cannot be
// placed are registered in local coordinates; when the placement is not
// the identity that handle is flagged in the report.
func place(tr geom.Transform, s *geom.Shape, id string, report *LoadReport) *geom.Shape {
	moved, err := tr.Apply(s)
	if err != nil {
		if !tr.IsIdentity() {
			report.Untransformed = append(report.Untransformed, id)
		}
		return s
	}
	return moved
}

// decodeLeafShape decodes a leaf's shape entry: either a single
// {"obj": <base64>} object or a list of base64 payloads. Multi-element
// lists merge into one compound; a one-element list degenerates to its
// element.
func decodeLeafShape(raw json.RawMessage) (*geom.Shape, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("missing shape")
	}
	if trimmed[0] == '{' {
		var single struct {
			Obj string `json:"obj"`
		}
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("parse shape object: %w", err)
		}
		return geom.Decode(single.Obj)
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("parse shape list: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty shape list")
	}
	shapes := make([]*geom.Shape, len(list))
	for i, enc := range list {
		s, err := geom.Decode(enc)
		if err != nil {
			return nil, fmt.Errorf("shape list entry %d: %w", i, err)
		}
		shapes[i] = s
	}
	if len(shapes) == 1 {
		return shapes[0], nil
	}
	return geom.MergeCompound(shapes), nil
}
