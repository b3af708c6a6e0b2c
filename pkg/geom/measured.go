// Package geom implements measure-aware polyline geometry: interpolating
// a point at a measure, extracting the sub-polyline between two measures,
// and projecting an arbitrary point onto the polyline.
//
// All math is planar. Route layers are expected to be in a projected
// coordinate system; geodetic correctness is out of scope.
package geom

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerateGeometry is returned for polylines with fewer than two
// vertices, which cannot carry a measure range.
var ErrDegenerateGeometry = errors.New("degenerate route geometry: fewer than two vertices")

// MeasureRangeError reports a measure outside the polyline's range.
type MeasureRangeError struct {
	Measure  float64
	Min, Max float64
}

func (e *MeasureRangeError) Error() string {
	return fmt.Sprintf("measure %g out of range [%g, %g]", e.Measure, e.Min, e.Max)
}

// Vertex is one polyline vertex with its measure along the route.
type Vertex struct {
	Point orb.Point
	M     float64
}

// MeasuredPolyline is an ordered vertex sequence with non-decreasing
// measures. It is immutable after construction and safe for concurrent
// reads.
type MeasuredPolyline struct {
	vertices []Vertex
}

// New builds a MeasuredPolyline, validating vertex count and measure
// monotonicity.
func New(vertices []Vertex) (*MeasuredPolyline, error) {
	if len(vertices) < 2 {
		return nil, ErrDegenerateGeometry
	}
	for i := 1; i < len(vertices); i++ {
		if vertices[i].M < vertices[i-1].M {
			return nil, fmt.Errorf("measures must be non-decreasing: %g after %g at vertex %d",
				vertices[i].M, vertices[i-1].M, i)
		}
	}
	vs := make([]Vertex, len(vertices))
	copy(vs, vertices)
	return &MeasuredPolyline{vertices: vs}, nil
}

// FromLineString builds a MeasuredPolyline from a LineString and a
// parallel measure slice. A nil measures slice synthesizes measures from
// cumulative planar length.
func FromLineString(ls orb.LineString, measures []float64) (*MeasuredPolyline, error) {
	if len(ls) < 2 {
		return nil, ErrDegenerateGeometry
	}
	if measures != nil && len(measures) != len(ls) {
		return nil, fmt.Errorf("measure count %d does not match vertex count %d", len(measures), len(ls))
	}
	vertices := make([]Vertex, len(ls))
	cum := 0.0
	for i, pt := range ls {
		if measures != nil {
			vertices[i] = Vertex{Point: pt, M: measures[i]}
			continue
		}
		if i > 0 {
			cum += planar.Distance(ls[i-1], pt)
		}
		vertices[i] = Vertex{Point: pt, M: cum}
	}
	return New(vertices)
}

// MeasureRange returns the first and last vertex measures.
func (p *MeasuredPolyline) MeasureRange() (min, max float64) {
	return p.vertices[0].M, p.vertices[len(p.vertices)-1].M
}

// LineString returns the polyline's vertices without measures.
func (p *MeasuredPolyline) LineString() orb.LineString {
	ls := make(orb.LineString, len(p.vertices))
	for i, v := range p.vertices {
		ls[i] = v.Point
	}
	return ls
}

// Measures returns the per-vertex measure values.
func (p *MeasuredPolyline) Measures() []float64 {
	ms := make([]float64, len(p.vertices))
	for i, v := range p.vertices {
		ms[i] = v.M
	}
	return ms
}

// Bound returns the polyline's bounding box.
func (p *MeasuredPolyline) Bound() orb.Bound {
	return p.LineString().Bound()
}

// Length returns the planar length of the polyline.
func (p *MeasuredPolyline) Length() float64 {
	return planar.Length(p.LineString())
}

// segmentIndex returns the index i of the vertex pair [i, i+1] whose
// measure span contains m. Binary search over the sorted measures.
func (p *MeasuredPolyline) segmentIndex(m float64) int {
	i := sort.Search(len(p.vertices), func(i int) bool {
		return p.vertices[i].M >= m
	})
	if i == 0 {
		return 0
	}
	if i >= len(p.vertices) {
		return len(p.vertices) - 2
	}
	return i - 1
}

// interpolate returns the point at measure m on the vertex pair [i, i+1].
// Zero-measure spans collapse to the first vertex of the pair.
func (p *MeasuredPolyline) interpolate(i int, m float64) orb.Point {
	a, b := p.vertices[i], p.vertices[i+1]
	span := b.M - a.M
	if span == 0 {
		return a.Point
	}
	t := (m - a.M) / span
	return orb.Point{
		a.Point[0] + t*(b.Point[0]-a.Point[0]),
		a.Point[1] + t*(b.Point[1]-a.Point[1]),
	}
}

// PointAtMeasure returns the interpolated point at measure m.
// Measures outside the polyline's range are a *MeasureRangeError.
func (p *MeasuredPolyline) PointAtMeasure(m float64) (orb.Point, error) {
	min, max := p.MeasureRange()
	if m < min || m > max {
		return orb.Point{}, &MeasureRangeError{Measure: m, Min: min, Max: max}
	}
	return p.interpolate(p.segmentIndex(m), m), nil
}

// SegmentBetween returns the sub-polyline between measures m1 and m2.
// The arguments may be in either order; the output vertex order follows
// the call order, so a decreasing pair yields a reversed line. Equal
// measures are a zero-length segment and rejected.
func (p *MeasuredPolyline) SegmentBetween(m1, m2 float64) (orb.LineString, error) {
	min, max := p.MeasureRange()
	for _, m := range [2]float64{m1, m2} {
		if m < min || m > max {
			return nil, &MeasureRangeError{Measure: m, Min: min, Max: max}
		}
	}
	if m1 == m2 {
		return nil, fmt.Errorf("degenerate segment: begin and end measures are both %g", m1)
	}

	lo, hi := m1, m2
	reversed := false
	if lo > hi {
		lo, hi = hi, lo
		reversed = true
	}

	var ls orb.LineString
	ls = append(ls, p.interpolate(p.segmentIndex(lo), lo))
	for _, v := range p.vertices {
		if v.M > lo && v.M < hi {
			ls = append(ls, v.Point)
		}
	}
	ls = append(ls, p.interpolate(p.segmentIndex(hi), hi))

	if reversed {
		ls.Reverse()
	}
	return ls, nil
}

// Projection is the nearest point on a route polyline to a query point.
type Projection struct {
	Point    orb.Point
	Measure  float64
	Distance float64
}

// Project snaps pt to the nearest position on the polyline and returns
// the snapped point, its interpolated measure, and the planar distance
// from pt. The scan keeps the best segment seen so far, the same
// best-candidate sweep the road snapper uses.
func (p *MeasuredPolyline) Project(pt orb.Point) Projection {
	best := Projection{Distance: math.Inf(1)}
	for i := 0; i < len(p.vertices)-1; i++ {
		a, b := p.vertices[i], p.vertices[i+1]
		closest, dist, ratio := pointToSegment(pt, a.Point, b.Point)
		if dist < best.Distance {
			best = Projection{
				Point:    closest,
				Measure:  a.M + ratio*(b.M-a.M),
				Distance: dist,
			}
		}
	}
	return best
}

// pointToSegment computes the closest point on segment AB to P, the
// planar distance to it, and the projection ratio along AB clamped to
// [0,1]. Degenerate segments (A == B) project onto A.
func pointToSegment(p, a, b orb.Point) (closest orb.Point, dist, ratio float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	closest = orb.Point{a[0] + t*dx, a[1] + t*dy}
	return closest, planar.Distance(p, closest), t
}
