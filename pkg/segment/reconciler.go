// Package segment pairs a flat sequence of points into begin/end route
// segments. Consecutive points (even index = begin, odd index = end)
// form one segment; each point snaps to the nearest route within a
// search radius, and pairs whose endpoints snap to different routes are
// dropped rather than reported as errors.
package segment

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

// Pair is one reconciled begin/end segment on a single route.
type Pair struct {
	SegmentID   int
	RouteID     string
	Measure     float64
	EndMeasure  float64
	Distance    float64
	EndDistance float64
	Geometry    orb.LineString
}

// Summary reports how pairing went. Discards are expected operating
// conditions, not errors.
type Summary struct {
	Pairs     int // total input pairs
	Matched   int // pairs emitted
	Discarded int // dropped: route mismatch, nothing in radius, or degenerate geometry
}

// Reconciler pairs and locates point sequences against a route layer.
type Reconciler struct {
	provider routes.Provider
	opts     locate.Options
}

// NewReconciler creates a reconciler over the given provider.
func NewReconciler(provider routes.Provider, opts locate.Options) (*Reconciler, error) {
	if provider == nil {
		return nil, &locate.InvalidInputError{Reason: "nil route provider"}
	}
	return &Reconciler{provider: provider, opts: opts}, nil
}

// match is one point's best projection among the radius candidates.
type match struct {
	route *routes.Route
	proj  geom.Projection
	found bool
}

// PairAndLocate pairs the ordered point sequence and locates each pair on
// the route layer. An odd point count fails the whole call before any
// row work, the one call-level fatal in the engine. Cancellation is
// checked between points; a cancelled call returns the context error.
func (r *Reconciler) PairAndLocate(ctx context.Context, points []orb.Point, radius float64) ([]Pair, Summary, error) {
	if len(points)%2 != 0 {
		return nil, Summary{}, &locate.InvalidInputError{
			Reason: fmt.Sprintf("odd point count: %d", len(points)),
		}
	}
	if radius < 0 {
		return nil, Summary{}, &locate.InvalidInputError{
			Reason: fmt.Sprintf("negative search radius: %g", radius),
		}
	}

	// Segment IDs follow from index parity, so matches are stored by
	// input position before any grouping.
	matches := make([]match, len(points))
	for i, pt := range points {
		if err := ctx.Err(); err != nil {
			return nil, Summary{}, err
		}
		matches[i] = r.bestMatch(pt, radius)
	}

	summary := Summary{Pairs: len(points) / 2}
	var pairs []Pair
	for seg := 0; seg < len(points)/2; seg++ {
		begin, end := matches[2*seg], matches[2*seg+1]

		// A point with no route inside the radius can never agree with
		// its partner, so the pair is discarded either way.
		if !begin.found || !end.found || begin.route.ID != end.route.ID {
			summary.Discarded++
			continue
		}

		line, err := begin.route.Line.SegmentBetween(begin.proj.Measure, end.proj.Measure)
		if err != nil {
			summary.Discarded++
			continue
		}

		pairs = append(pairs, Pair{
			SegmentID:   seg,
			RouteID:     begin.route.ID,
			Measure:     r.round(begin.proj.Measure),
			EndMeasure:  r.round(end.proj.Measure),
			Distance:    r.round(begin.proj.Distance),
			EndDistance: r.round(end.proj.Distance),
			Geometry:    line,
		})
	}
	summary.Matched = len(pairs)
	return pairs, summary, nil
}

// bestMatch projects pt onto every route within radius and keeps the
// nearest. Ties break by the provider's candidate order, the same weak
// first-seen guarantee the measure path gives for duplicate route IDs.
func (r *Reconciler) bestMatch(pt orb.Point, radius float64) match {
	best := match{proj: geom.Projection{Distance: math.Inf(1)}}
	for _, route := range r.provider.Within(pt, radius) {
		proj := route.Line.Project(pt)
		if proj.Distance < best.proj.Distance {
			best = match{route: route, proj: proj, found: true}
		}
	}
	return best
}

func (r *Reconciler) round(v float64) float64 {
	if r.opts.RoundingDigits < 0 {
		return v
	}
	p := math.Pow(10, float64(r.opts.RoundingDigits))
	return math.Round(v*p) / p
}
