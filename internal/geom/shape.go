package geom

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Kind classifies a shape's topological level.
type Kind string

const (
	KindCompound Kind = "compound"
	KindSolid    Kind = "solid"
	KindShell    Kind = "shell"
	KindFace     Kind = "face"
	KindEdge     Kind = "edge"
	KindVertex   Kind = "vertex"
)

// Face is one topological face, tessellated into triangles that index
// into the owning shape's vertex buffer.
type Face struct {
	Triangles [][3]int `json:"triangles"`
}

// Edge is one topological edge: either a discretized polyline or a
// baked display curve the control side pre-rendered. Baked edges carry
// no point data and cannot be placed.
type Edge struct {
	Points []Vec3 `json:"points,omitempty"`
	Baked  string `json:"baked,omitempty"`
}

// Shape is a tessellated shape as shipped by the control process:
// a vertex buffer plus the faces and edges built on it.
type Shape struct {
	Kind     Kind   `json:"kind"`
	Vertices []Vec3 `json:"vertices"`
	Faces    []Face `json:"faces,omitempty"`
	Edges    []Edge `json:"edges,omitempty"`
}

// Decode parses a base64-wrapped JSON shape payload and validates its
// structure.
func Decode(encoded string) (*Shape, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("geom: decode shape: base64: %w", err)
	}
	var s Shape
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("geom: decode shape: parse: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("geom: decode shape: %w", err)
	}
	return &s, nil
}

// validate checks structural consistency of a decoded shape.
func (s *Shape) validate() error {
	if s.Kind == "" {
		return fmt.Errorf("missing kind")
	}
	for fi, f := range s.Faces {
		for ti, tri := range f.Triangles {
			for _, idx := range tri {
				if idx < 0 || idx >= len(s.Vertices) {
					return fmt.Errorf("face %d triangle %d: vertex index %d out of range [0,%d)",
						fi, ti, idx, len(s.Vertices))
				}
			}
		}
	}
	for ei, e := range s.Edges {
		if len(e.Points) == 0 && e.Baked == "" {
			return fmt.Errorf("edge %d has neither points nor a baked form", ei)
		}
	}
	return nil
}

// pointCount returns the number of transformable points in the shape.
func (s *Shape) pointCount() int {
	n := len(s.Vertices)
	for _, e := range s.Edges {
		n += len(e.Points)
	}
	return n
}

// MergeCompound concatenates shapes into a single compound, re-basing
// each shape's triangle indices onto the merged vertex buffer. Callers
// invoke it only for lists of two or more shapes; a single-element list
// degenerates to its element without merging.
func MergeCompound(shapes []*Shape) *Shape {
	merged := &Shape{Kind: KindCompound}
	for _, s := range shapes {
		off := len(merged.Vertices)
		merged.Vertices = append(merged.Vertices, s.Vertices...)
		for _, f := range s.Faces {
			tris := make([][3]int, len(f.Triangles))
			for i, tri := range f.Triangles {
				tris[i] = [3]int{tri[0] + off, tri[1] + off, tri[2] + off}
			}
			merged.Faces = append(merged.Faces, Face{Triangles: tris})
		}
		merged.Edges = append(merged.Edges, cloneEdges(s.Edges)...)
	}
	return merged
}

// FacesOf returns each face of s as a standalone face shape, in
// declaration order. Vertex buffers are subset to the referenced points.
func FacesOf(s *Shape) []*Shape {
	out := make([]*Shape, 0, len(s.Faces))
	for _, f := range s.Faces {
		out = append(out, faceShape(s, f))
	}
	return out
}

// faceShape extracts one face with a remapped minimal vertex buffer.
func faceShape(s *Shape, f Face) *Shape {
	sub := &Shape{Kind: KindFace}
	remap := make(map[int]int)
	tris := make([][3]int, len(f.Triangles))
	for i, tri := range f.Triangles {
		for j, idx := range tri {
			ni, ok := remap[idx]
			if !ok {
				ni = len(sub.Vertices)
				remap[idx] = ni
				sub.Vertices = append(sub.Vertices, s.Vertices[idx])
			}
			tris[i][j] = ni
		}
	}
	sub.Faces = []Face{{Triangles: tris}}
	return sub
}

// EdgesOf returns each edge of s as a standalone edge shape, in
// declaration order. Baked edges come back as baked edge shapes.
func EdgesOf(s *Shape) []*Shape {
	out := make([]*Shape, 0, len(s.Edges))
	for _, e := range s.Edges {
		out = append(out, &Shape{Kind: KindEdge, Edges: []Edge{cloneEdge(e)}})
	}
	return out
}

// VerticesOf returns each buffer vertex of s as a standalone vertex
// shape, in declaration order.
func VerticesOf(s *Shape) []*Shape {
	out := make([]*Shape, 0, len(s.Vertices))
	for _, v := range s.Vertices {
		out = append(out, &Shape{Kind: KindVertex, Vertices: []Vec3{v}})
	}
	return out
}

func cloneFaces(faces []Face) []Face {
	if len(faces) == 0 {
		return nil
	}
	out := make([]Face, len(faces))
	for i, f := range faces {
		tris := make([][3]int, len(f.Triangles))
		copy(tris, f.Triangles)
		out[i] = Face{Triangles: tris}
	}
	return out
}

func cloneEdge(e Edge) Edge {
	ne := Edge{Baked: e.Baked}
	if len(e.Points) > 0 {
		ne.Points = make([]Vec3, len(e.Points))
		copy(ne.Points, e.Points)
	}
	return ne
}

func cloneEdges(edges []Edge) []Edge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = cloneEdge(e)
	}
	return out
}
