package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoGeometry is returned when a measurement is requested for a shape
// that carries no measurable points (for example a baked display curve).
var ErrNoGeometry = errors.New("geom: shape has no measurable geometry")

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Properties holds the measured properties of a single shape. Volume,
// Area and Length are present only where the shape's kind supports them.
type Properties struct {
	Center      Vec3     `json:"center"`
	VertexCount int      `json:"vertex_count"`
	BoundingBox Box      `json:"bb"`
	Volume      *float64 `json:"volume,omitempty"`
	Area        *float64 `json:"area,omitempty"`
	Length      *float64 `json:"length,omitempty"`
}

// Distance holds the measured distance between two shapes, with the
// witness points the viewer draws the measurement line between.
type Distance struct {
	Distance float64 `json:"distance"`
	Point1   Vec3    `json:"point1"`
	Point2   Vec3    `json:"point2"`
}

// PropertiesOf measures s: centroid and bounding box always, surface
// area when faces are present, volume for closed kinds, polyline length
// for edge-like shapes.
func PropertiesOf(s *Shape) (Properties, error) {
	pts := pointsOf(s)
	if len(pts) == 0 {
		return Properties{}, fmt.Errorf("geom: properties: %w", ErrNoGeometry)
	}
	p := Properties{
		Center:      centroid(s, pts),
		VertexCount: len(pts),
		BoundingBox: bounds(pts),
	}
	if len(s.Faces) > 0 {
		area := surfaceArea(s)
		p.Area = &area
		if s.Kind == KindSolid || s.Kind == KindCompound {
			vol := volume(s)
			p.Volume = &vol
		}
	} else if edgeLen, ok := polylineLength(s); ok {
		p.Length = &edgeLen
	}
	return p, nil
}

// DistanceBetween measures the distance between a and b. With center
// set it is the centroid-to-centroid distance; otherwise the minimum
// distance over the shapes' tessellation points.
func DistanceBetween(a, b *Shape, center bool) (Distance, error) {
	if center {
		pa, err := PropertiesOf(a)
		if err != nil {
			return Distance{}, fmt.Errorf("geom: distance: %w", err)
		}
		pb, err := PropertiesOf(b)
		if err != nil {
			return Distance{}, fmt.Errorf("geom: distance: %w", err)
		}
		return Distance{
			Distance: pa.Center.DistTo(pb.Center),
			Point1:   pa.Center,
			Point2:   pb.Center,
		}, nil
	}

	ptsA, ptsB := pointsOf(a), pointsOf(b)
	if len(ptsA) == 0 || len(ptsB) == 0 {
		return Distance{}, fmt.Errorf("geom: distance: %w", ErrNoGeometry)
	}
	best := Distance{Distance: math.Inf(1)}
	for _, pa := range ptsA {
		for _, pb := range ptsB {
			if d := pa.DistTo(pb); d < best.Distance {
				best = Distance{Distance: d, Point1: pa, Point2: pb}
			}
		}
	}
	return best, nil
}

// pointsOf gathers every tessellation point of s: the vertex buffer
// plus all discretized edge points.
func pointsOf(s *Shape) []Vec3 {
	pts := make([]Vec3, 0, s.pointCount())
	pts = append(pts, s.Vertices...)
	for _, e := range s.Edges {
		pts = append(pts, e.Points...)
	}
	return pts
}

// centroid picks the centroid formulation matching the shape's content:
// area-weighted over triangles when faces exist, length-weighted over
// segments for polylines, plain mean of points otherwise.
func centroid(s *Shape, pts []Vec3) Vec3 {
	if len(s.Faces) > 0 {
		var c Vec3
		var total float64
		for _, f := range s.Faces {
			for _, tri := range f.Triangles {
				a, b, cc := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
				area := triangleArea(a, b, cc)
				mid := a.Add(b).Add(cc).Scale(1.0 / 3.0)
				c = c.Add(mid.Scale(area))
				total += area
			}
		}
		if total > 0 {
			return c.Scale(1 / total)
		}
	}
	if hasPolyline(s) {
		var c Vec3
		var total float64
		for _, e := range s.Edges {
			for i := 1; i < len(e.Points); i++ {
				seg := e.Points[i].DistTo(e.Points[i-1])
				mid := e.Points[i].Add(e.Points[i-1]).Scale(0.5)
				c = c.Add(mid.Scale(seg))
				total += seg
			}
		}
		if total > 0 {
			return c.Scale(1 / total)
		}
	}
	var c Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

func hasPolyline(s *Shape) bool {
	for _, e := range s.Edges {
		if len(e.Points) > 1 {
			return true
		}
	}
	return false
}

// bounds computes the axis-aligned bounding box of pts.
func bounds(pts []Vec3) Box {
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = math.Min(b.Min[i], p[i])
			b.Max[i] = math.Max(b.Max[i], p[i])
		}
	}
	return b
}

func triangleArea(a, b, c Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Norm() / 2
}

// surfaceArea sums the area of every triangle of every face.
func surfaceArea(s *Shape) float64 {
	var area float64
	for _, f := range s.Faces {
		for _, tri := range f.Triangles {
			area += triangleArea(s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]])
		}
	}
	return area
}

// volume computes the enclosed volume as the magnitude of the signed
// tetrahedron sum over all triangles. Meaningful for closed meshes;
// best effort for anything else.
func volume(s *Shape) float64 {
	var vol float64
	for _, f := range s.Faces {
		for _, tri := range f.Triangles {
			a, b, c := s.Vertices[tri[0]], s.Vertices[tri[1]], s.Vertices[tri[2]]
			vol += a.Dot(b.Cross(c))
		}
	}
	return math.Abs(vol / 6)
}

// polylineLength sums segment lengths across all discretized edges.
// The second return is false when no edge carries points.
func polylineLength(s *Shape) (float64, bool) {
	var length float64
	found := false
	for _, e := range s.Edges {
		if len(e.Points) > 0 {
			found = true
		}
		for i := 1; i < len(e.Points); i++ {
			length += e.Points[i].DistTo(e.Points[i-1])
		}
	}
	return length, found
}
