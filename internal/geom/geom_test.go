package geom

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func vecNear(a, b Vec3) bool {
	return near(a[0], b[0]) && near(a[1], b[1]) && near(a[2], b[2])
}

// cube returns a unit cube solid: 8 vertices, 6 faces of two triangles
// each, 12 polyline edges. Volume 1, surface area 6, centroid at
// (0.5, 0.5, 0.5).
func cube() *Shape {
	v := []Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	faces := []Face{
		{Triangles: [][3]int{{0, 2, 1}, {0, 3, 2}}}, // bottom
		{Triangles: [][3]int{{4, 5, 6}, {4, 6, 7}}}, // top
		{Triangles: [][3]int{{0, 1, 5}, {0, 5, 4}}}, // front
		{Triangles: [][3]int{{2, 3, 7}, {2, 7, 6}}}, // back
		{Triangles: [][3]int{{0, 4, 7}, {0, 7, 3}}}, // left
		{Triangles: [][3]int{{1, 2, 6}, {1, 6, 5}}}, // right
	}
	pairs := [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{Points: []Vec3{v[p[0]], v[p[1]]}}
	}
	return &Shape{Kind: KindSolid, Vertices: v, Faces: faces, Edges: edges}
}

func encodeShape(t *testing.T, s *Shape) string {
	t.Helper()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal shape: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestQuaternionRotate_QuarterTurnAboutZ(t *testing.T) {
	s := math.Sqrt2 / 2
	q := Quaternion{I: 0, J: 0, K: s, Real: s}

	got := q.Rotate(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{0, 1, 0}) {
		t.Errorf("Rotate(1,0,0) = %v, want (0,1,0)", got)
	}
	got = q.Rotate(Vec3{0, 1, 0})
	if !vecNear(got, Vec3{-1, 0, 0}) {
		t.Errorf("Rotate(0,1,0) = %v, want (-1,0,0)", got)
	}
	got = q.Rotate(Vec3{0, 0, 1})
	if !vecNear(got, Vec3{0, 0, 1}) {
		t.Errorf("Rotate(0,0,1) = %v, want (0,0,1) (axis unchanged)", got)
	}
}

func TestIdentityTransform_LeavesPointsAlone(t *testing.T) {
	tr := Identity()
	p := Vec3{3, -2, 7}
	if got := tr.Point(p); !vecNear(got, p) {
		t.Errorf("Identity().Point(%v) = %v, want unchanged", p, got)
	}
}

func TestNewTransform_Validation(t *testing.T) {
	tests := []struct {
		name  string
		trans []float64
		quat  []float64
		ok    bool
	}{
		{"valid", []float64{1, 2, 3}, []float64{0, 0, 0, 1}, true},
		{"short translation", []float64{1, 2}, []float64{0, 0, 0, 1}, false},
		{"short quaternion", []float64{1, 2, 3}, []float64{0, 0, 1}, false},
		{"zero quaternion", []float64{1, 2, 3}, []float64{0, 0, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransform(tt.trans, tt.quat)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewTransform_NormalizesQuaternion(t *testing.T) {
	// Double-length quarter turn about Z must behave like the unit one.
	tr, err := NewTransform([]float64{0, 0, 0}, []float64{0, 0, math.Sqrt2, math.Sqrt2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tr.Point(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{0, 1, 0}) {
		t.Errorf("Point(1,0,0) = %v, want (0,1,0)", got)
	}
}

func TestTransformPoint_RotatesThenTranslates(t *testing.T) {
	s := math.Sqrt2 / 2
	tr := Transform{T: Vec3{10, 0, 0}, Q: Quaternion{K: s, Real: s}}

	// (1,0,0) rotates to (0,1,0), then translates to (10,1,0).
	got := tr.Point(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{10, 1, 0}) {
		t.Errorf("Point(1,0,0) = %v, want (10,1,0)", got)
	}
}

func TestTransformApply_TranslatesAllPoints(t *testing.T) {
	tr := Transform{T: Vec3{5, 0, 0}, Q: Quaternion{Real: 1}}
	moved, err := tr.Apply(cube())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vecNear(moved.Vertices[0], Vec3{5, 0, 0}) {
		t.Errorf("Vertices[0] = %v, want (5,0,0)", moved.Vertices[0])
	}
	if !vecNear(moved.Vertices[6], Vec3{6, 1, 1}) {
		t.Errorf("Vertices[6] = %v, want (6,1,1)", moved.Vertices[6])
	}
	if !vecNear(moved.Edges[0].Points[1], Vec3{6, 0, 0}) {
		t.Errorf("Edges[0].Points[1] = %v, want (6,0,0)", moved.Edges[0].Points[1])
	}
}

func TestTransformApply_DoesNotMutateSource(t *testing.T) {
	src := cube()
	tr := Transform{T: Vec3{5, 5, 5}, Q: Quaternion{Real: 1}}
	if _, err := tr.Apply(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vecNear(src.Vertices[0], Vec3{0, 0, 0}) {
		t.Errorf("source Vertices[0] = %v, want untouched (0,0,0)", src.Vertices[0])
	}
}

func TestTransformApply_BakedEdgeNotTransformable(t *testing.T) {
	baked := &Shape{Kind: KindEdge, Edges: []Edge{{Baked: "b3BhcXVl"}}}
	_, err := Identity().Apply(baked)
	if err != ErrNotTransformable {
		t.Fatalf("err = %v, want ErrNotTransformable", err)
	}
}

func TestTransformApply_EmptyShapeNotTransformable(t *testing.T) {
	_, err := Identity().Apply(&Shape{Kind: KindCompound})
	if err != ErrNotTransformable {
		t.Fatalf("err = %v, want ErrNotTransformable", err)
	}
}

func TestTransformApply_CarriesBakedPayloadThrough(t *testing.T) {
	s := &Shape{
		Kind:     KindCompound,
		Vertices: []Vec3{{0, 0, 0}},
		Edges:    []Edge{{Baked: "b3BhcXVl"}},
	}
	moved, err := Identity().Apply(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.Edges[0].Baked != "b3BhcXVl" {
		t.Errorf("Baked = %q, want carried through", moved.Edges[0].Baked)
	}
}
