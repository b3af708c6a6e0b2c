// Package routes provides route layer access for the locating engine:
// lookup of measured route polylines by ID and radius search around a
// point. The in-memory Layer is read-only once loaded and is shared
// across batch workers without locking.
package routes

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
)

// Route is one route feature: an identifier plus its measured polyline.
// Several features may share one ID (a data-quality anomaly the engine
// resolves by first-seen order).
type Route struct {
	ID   string
	Line *geom.MeasuredPolyline

	seq int // insertion order, tie-break for candidate ordering
}

// Provider is the route geometry capability the engine consumes.
type Provider interface {
	// Lookup returns all route features with exactly the given ID, in
	// load order. Empty result means the route does not exist.
	Lookup(routeID string) []*Route
	// Within returns all routes passing within radius of pt, in load
	// order. Radius and coordinates share the layer's planar units.
	Within(pt orb.Point, radius float64) []*Route
}

// Layer is an in-memory Provider backed by an ID map and an R-tree over
// route bounding boxes for radius queries.
type Layer struct {
	byID  map[string][]*Route
	index rtree.RTreeG[*Route]
	count int
}

// NewLayer returns an empty route layer.
func NewLayer() *Layer {
	return &Layer{byID: make(map[string][]*Route)}
}

// Add inserts a route feature. Not safe to call during a batch run.
func (l *Layer) Add(id string, line *geom.MeasuredPolyline) {
	r := &Route{ID: id, Line: line, seq: l.count}
	l.count++
	l.byID[id] = append(l.byID[id], r)

	b := line.Bound()
	l.index.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, r)
}

// Len returns the number of route features in the layer.
func (l *Layer) Len() int {
	return l.count
}

// Lookup implements Provider.
func (l *Layer) Lookup(routeID string) []*Route {
	return l.byID[routeID]
}

// Within implements Provider. The R-tree prunes to routes whose bounding
// box intersects the search window; exact filtering projects the point
// onto each survivor. Results are sorted back into load order so the
// "first seen wins" tie-break stays stable for a given layer.
func (l *Layer) Within(pt orb.Point, radius float64) []*Route {
	min := [2]float64{pt[0] - radius, pt[1] - radius}
	max := [2]float64{pt[0] + radius, pt[1] + radius}

	var candidates []*Route
	l.index.Search(min, max, func(_, _ [2]float64, r *Route) bool {
		if r.Line.Project(pt).Distance <= radius {
			candidates = append(candidates, r)
		}
		return true
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})
	return candidates
}
