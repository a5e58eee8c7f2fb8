// Package geom implements the triangle-mesh geometry the measurement
// tools work on: decoding tessellated shape payloads, compound merging,
// sub-entity extraction, placement transforms, and the property and
// distance computations.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotTransformable is returned by Transform.Apply for shapes that
// carry no transformable points (empty geometry, baked display curves).
var ErrNotTransformable = errors.New("geom: shape not transformable")

// Vec3 is a point or direction in model space, serialized as [x, y, z].
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// DistTo returns the Euclidean distance between v and w.
func (v Vec3) DistTo(w Vec3) float64 {
	return v.Sub(w).Norm()
}

// Quaternion is a rotation in [i, j, k, real] component order.
type Quaternion struct {
	I    float64 `json:"i"`
	J    float64 `json:"j"`
	K    float64 `json:"k"`
	Real float64 `json:"real"`
}

// Norm returns the quaternion magnitude.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.I*q.I + q.J*q.J + q.K*q.K + q.Real*q.Real)
}

// Normalize returns q scaled to unit length.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	return Quaternion{I: q.I / n, J: q.J / n, K: q.K / n, Real: q.Real / n}
}

// Rotate applies the rotation q to v. q must be unit length.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	u := Vec3{q.I, q.J, q.K}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.Real)).Add(u.Cross(t))
}

// Transform is a rigid placement: rotate by Q, then translate by T.
type Transform struct {
	T Vec3
	Q Quaternion
}

// Identity returns the identity placement.
func Identity() Transform {
	return Transform{Q: Quaternion{Real: 1}}
}

// NewTransform builds a Transform from a translation triple and a
// rotation quaternion in [i, j, k, real] order, as they appear in the
// model tree's "loc" entries. The quaternion is normalized.
func NewTransform(trans, quat []float64) (Transform, error) {
	if len(trans) != 3 {
		return Transform{}, fmt.Errorf("geom: transform: translation needs 3 components, got %d", len(trans))
	}
	if len(quat) != 4 {
		return Transform{}, fmt.Errorf("geom: transform: quaternion needs 4 components, got %d", len(quat))
	}
	q := Quaternion{I: quat[0], J: quat[1], K: quat[2], Real: quat[3]}
	if q.Norm() == 0 {
		return Transform{}, fmt.Errorf("geom: transform: zero-length quaternion")
	}
	return Transform{
		T: Vec3{trans[0], trans[1], trans[2]},
		Q: q.Normalize(),
	}, nil
}

// IsIdentity reports whether the placement moves nothing.
func (t Transform) IsIdentity() bool {
	return t.T == (Vec3{}) && t.Q == (Quaternion{Real: 1})
}

// Point applies the placement to a single point.
func (t Transform) Point(p Vec3) Vec3 {
	return t.Q.Rotate(p).Add(t.T)
}

// Apply returns a copy of s with every vertex and edge point placed by
// the transform. Baked edge payloads carry through unchanged. Shapes
// without any transformable point return ErrNotTransformable.
func (t Transform) Apply(s *Shape) (*Shape, error) {
	if s.pointCount() == 0 {
		return nil, ErrNotTransformable
	}
	out := &Shape{Kind: s.Kind, Faces: cloneFaces(s.Faces)}
	if len(s.Vertices) > 0 {
		out.Vertices = make([]Vec3, len(s.Vertices))
		for i, v := range s.Vertices {
			out.Vertices[i] = t.Point(v)
		}
	}
	for _, e := range s.Edges {
		ne := Edge{Baked: e.Baked}
		if len(e.Points) > 0 {
			ne.Points = make([]Vec3, len(e.Points))
			for i, p := range e.Points {
				ne.Points[i] = t.Point(p)
			}
		}
		out.Edges = append(out.Edges, ne)
	}
	return out, nil
}
