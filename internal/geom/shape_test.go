package geom

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecode_RoundTripsCube(t *testing.T) {
	s, err := Decode(encodeShape(t, cube()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Kind != KindSolid {
		t.Errorf("Kind = %q, want %q", s.Kind, KindSolid)
	}
	if len(s.Vertices) != 8 {
		t.Errorf("len(Vertices) = %d, want 8", len(s.Vertices))
	}
	if len(s.Faces) != 6 {
		t.Errorf("len(Faces) = %d, want 6", len(s.Faces))
	}
	if len(s.Edges) != 12 {
		t.Errorf("len(Edges) = %d, want 12", len(s.Edges))
	}
}

func TestDecode_BadBase64(t *testing.T) {
	_, err := Decode("%%%not-base64%%%")
	if err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if !strings.Contains(err.Error(), "geom: decode shape: base64:") {
		t.Errorf("error = %q, want base64 decode error", err.Error())
	}
}

func TestDecode_BadJSON(t *testing.T) {
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte("not json")))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "geom: decode shape: parse:") {
		t.Errorf("error = %q, want parse error", err.Error())
	}
}

func TestDecode_MissingKind(t *testing.T) {
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte(`{"vertices":[[0,0,0]]}`)))
	if err == nil {
		t.Fatal("expected error for missing kind")
	}
	if !strings.Contains(err.Error(), "missing kind") {
		t.Errorf("error = %q, want missing kind", err.Error())
	}
}

func TestDecode_TriangleIndexOutOfRange(t *testing.T) {
	payload := `{"kind":"face","vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[{"triangles":[[0,1,9]]}]}`
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte(payload)))
	if err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("error = %q, want out of range", err.Error())
	}
}

func TestDecode_EdgeWithoutPointsOrBaked(t *testing.T) {
	payload := `{"kind":"edge","vertices":[],"edges":[{}]}`
	_, err := Decode(base64.StdEncoding.EncodeToString([]byte(payload)))
	if err == nil {
		t.Fatal("expected error for empty edge entry")
	}
	if !strings.Contains(err.Error(), "neither points nor a baked form") {
		t.Errorf("error = %q, want empty edge error", err.Error())
	}
}

func TestMergeCompound_RebasesTriangleIndices(t *testing.T) {
	a := cube()
	b := cube()
	merged := MergeCompound([]*Shape{a, b})

	if merged.Kind != KindCompound {
		t.Errorf("Kind = %q, want %q", merged.Kind, KindCompound)
	}
	if len(merged.Vertices) != 16 {
		t.Errorf("len(Vertices) = %d, want 16", len(merged.Vertices))
	}
	if len(merged.Faces) != 12 {
		t.Errorf("len(Faces) = %d, want 12", len(merged.Faces))
	}
	if len(merged.Edges) != 24 {
		t.Errorf("len(Edges) = %d, want 24", len(merged.Edges))
	}
	// Second cube's first triangle must point past the first cube's buffer.
	tri := merged.Faces[6].Triangles[0]
	for _, idx := range tri {
		if idx < 8 || idx >= 16 {
			t.Errorf("rebased triangle index = %d, want in [8,16)", idx)
		}
	}
}

func TestMergeCompound_DoesNotAliasSourceEdges(t *testing.T) {
	a := cube()
	merged := MergeCompound([]*Shape{a, cube()})
	merged.Edges[0].Points[0] = Vec3{99, 99, 99}
	if vecNear(a.Edges[0].Points[0], Vec3{99, 99, 99}) {
		t.Error("merged edge points alias the source shape")
	}
}

func TestFacesOf_StableOrderAndRemap(t *testing.T) {
	faces := FacesOf(cube())
	if len(faces) != 6 {
		t.Fatalf("len = %d, want 6", len(faces))
	}
	for i, f := range faces {
		if f.Kind != KindFace {
			t.Errorf("faces[%d].Kind = %q, want %q", i, f.Kind, KindFace)
		}
		if len(f.Faces) != 1 {
			t.Fatalf("faces[%d] carries %d face entries, want 1", i, len(f.Faces))
		}
		if len(f.Vertices) != 4 {
			t.Errorf("faces[%d] has %d vertices, want 4 (remapped subset)", i, len(f.Vertices))
		}
		for _, tri := range f.Faces[0].Triangles {
			for _, idx := range tri {
				if idx < 0 || idx >= len(f.Vertices) {
					t.Errorf("faces[%d] triangle index %d out of remapped range", i, idx)
				}
			}
		}
	}
	// First face of the cube fixture is the bottom: all z == 0.
	for _, v := range faces[0].Vertices {
		if !near(v[2], 0) {
			t.Errorf("bottom face vertex %v has z != 0", v)
		}
	}
}

func TestEdgesOf_KeepsDeclarationOrder(t *testing.T) {
	edges := EdgesOf(cube())
	if len(edges) != 12 {
		t.Fatalf("len = %d, want 12", len(edges))
	}
	for i, e := range edges {
		if e.Kind != KindEdge {
			t.Errorf("edges[%d].Kind = %q, want %q", i, e.Kind, KindEdge)
		}
		if len(e.Edges) != 1 {
			t.Errorf("edges[%d] carries %d edge entries, want 1", i, len(e.Edges))
		}
	}
	// Edge 0 of the fixture runs from (0,0,0) to (1,0,0).
	if !vecNear(edges[0].Edges[0].Points[0], Vec3{0, 0, 0}) || !vecNear(edges[0].Edges[0].Points[1], Vec3{1, 0, 0}) {
		t.Errorf("edges[0] = %v, want (0,0,0)-(1,0,0)", edges[0].Edges[0].Points)
	}
}

func TestEdgesOf_BakedEdgeStaysBaked(t *testing.T) {
	s := &Shape{
		Kind:     KindCompound,
		Vertices: []Vec3{{0, 0, 0}},
		Edges: []Edge{
			{Points: []Vec3{{0, 0, 0}, {1, 0, 0}}},
			{Baked: "b3BhcXVl"},
		},
	}
	edges := EdgesOf(s)
	if len(edges) != 2 {
		t.Fatalf("len = %d, want 2", len(edges))
	}
	if edges[1].Edges[0].Baked != "b3BhcXVl" {
		t.Errorf("edges[1].Baked = %q, want preserved", edges[1].Edges[0].Baked)
	}
	if len(edges[1].Edges[0].Points) != 0 {
		t.Errorf("baked edge has %d points, want 0", len(edges[1].Edges[0].Points))
	}
}

func TestVerticesOf_OnePerBufferEntry(t *testing.T) {
	verts := VerticesOf(cube())
	if len(verts) != 8 {
		t.Fatalf("len = %d, want 8", len(verts))
	}
	for i, v := range verts {
		if v.Kind != KindVertex {
			t.Errorf("verts[%d].Kind = %q, want %q", i, v.Kind, KindVertex)
		}
		if len(v.Vertices) != 1 {
			t.Errorf("verts[%d] has %d points, want 1", i, len(v.Vertices))
		}
	}
	if !vecNear(verts[6].Vertices[0], Vec3{1, 1, 1}) {
		t.Errorf("verts[6] = %v, want (1,1,1)", verts[6].Vertices[0])
	}
}
