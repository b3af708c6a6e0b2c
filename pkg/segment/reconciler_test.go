package segment

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

// Two parallel routes: 005i at y=0 and 410i at y=10, measures 0..100.
func testReconciler(t *testing.T) *Reconciler {
	t.Helper()
	layer := routes.NewLayer()
	layer.Add("005i", mustLine(t, orb.LineString{{0, 0}, {100, 0}}, []float64{0, 100}))
	layer.Add("410i", mustLine(t, orb.LineString{{0, 10}, {100, 10}}, []float64{0, 100}))

	r, err := NewReconciler(layer, locate.DefaultOptions())
	if err != nil {
		t.Fatalf("NewReconciler error: %v", err)
	}
	return r
}

func mustLine(t *testing.T, ls orb.LineString, measures []float64) *geom.MeasuredPolyline {
	t.Helper()
	p, err := geom.FromLineString(ls, measures)
	if err != nil {
		t.Fatalf("FromLineString error: %v", err)
	}
	return p
}

func TestPairAndLocate(t *testing.T) {
	r := testReconciler(t)

	// First pair snaps onto 005i at measures 10 and 20. Second pair
	// splits across 005i and 410i and is discarded.
	points := []orb.Point{
		{10, 1}, {20, 1},
		{30, 1}, {30, 9},
	}
	pairs, summary, err := r.PairAndLocate(context.Background(), points, 5)
	if err != nil {
		t.Fatalf("PairAndLocate error: %v", err)
	}
	if summary.Pairs != 2 || summary.Matched != 1 || summary.Discarded != 1 {
		t.Fatalf("summary = %+v, want Pairs 2, Matched 1, Discarded 1", summary)
	}

	p := pairs[0]
	if p.SegmentID != 0 {
		t.Errorf("SegmentID = %d, want 0", p.SegmentID)
	}
	if p.RouteID != "005i" {
		t.Errorf("RouteID = %q, want 005i", p.RouteID)
	}
	if p.Measure != 10 || p.EndMeasure != 20 {
		t.Errorf("measures = %g, %g, want 10, 20", p.Measure, p.EndMeasure)
	}
	if p.Distance != 1 || p.EndDistance != 1 {
		t.Errorf("distances = %g, %g, want 1, 1", p.Distance, p.EndDistance)
	}
	if p.Geometry[0] != (orb.Point{10, 0}) || p.Geometry[len(p.Geometry)-1] != (orb.Point{20, 0}) {
		t.Errorf("geometry endpoints = %v .. %v, want (10,0) .. (20,0)", p.Geometry[0], p.Geometry[len(p.Geometry)-1])
	}
}

func TestPairAndLocate_SegmentIDsSurviveDiscards(t *testing.T) {
	r := testReconciler(t)

	// The middle pair has a point outside every radius; the last pair's
	// SegmentID must still reflect its input position.
	points := []orb.Point{
		{10, 1}, {20, 1},
		{30, 500}, {40, 1},
		{50, 1}, {60, 1},
	}
	pairs, summary, err := r.PairAndLocate(context.Background(), points, 5)
	if err != nil {
		t.Fatalf("PairAndLocate error: %v", err)
	}
	if summary.Matched != 2 || summary.Discarded != 1 {
		t.Fatalf("summary = %+v, want Matched 2, Discarded 1", summary)
	}
	if pairs[0].SegmentID != 0 || pairs[1].SegmentID != 2 {
		t.Errorf("SegmentIDs = %d, %d, want 0, 2", pairs[0].SegmentID, pairs[1].SegmentID)
	}
}

func TestPairAndLocate_NearestRouteWins(t *testing.T) {
	r := testReconciler(t)

	// y=4 is nearer 005i, y=6 nearer 410i, both within a radius that
	// reaches both routes. The pair splits and is discarded.
	points := []orb.Point{{50, 4}, {50, 6}}
	pairs, summary, err := r.PairAndLocate(context.Background(), points, 20)
	if err != nil {
		t.Fatalf("PairAndLocate error: %v", err)
	}
	if len(pairs) != 0 || summary.Discarded != 1 {
		t.Errorf("pairs = %v, summary = %+v, want one discard", pairs, summary)
	}
}

func TestPairAndLocate_DegenerateSegmentDiscarded(t *testing.T) {
	r := testReconciler(t)

	// Both points snap to the same measure.
	points := []orb.Point{{50, 1}, {50, 2}}
	pairs, summary, err := r.PairAndLocate(context.Background(), points, 5)
	if err != nil {
		t.Fatalf("PairAndLocate error: %v", err)
	}
	if len(pairs) != 0 || summary.Discarded != 1 {
		t.Errorf("pairs = %v, summary = %+v, want one discard", pairs, summary)
	}
}

func TestPairAndLocate_OddPointCount(t *testing.T) {
	r := testReconciler(t)

	_, _, err := r.PairAndLocate(context.Background(), []orb.Point{{10, 1}}, 5)
	var invalid *locate.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidInputError", err)
	}
}

func TestPairAndLocate_NegativeRadius(t *testing.T) {
	r := testReconciler(t)

	_, _, err := r.PairAndLocate(context.Background(), []orb.Point{{10, 1}, {20, 1}}, -1)
	var invalid *locate.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidInputError", err)
	}
}

func TestPairAndLocate_Cancelled(t *testing.T) {
	r := testReconciler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.PairAndLocate(ctx, []orb.Point{{10, 1}, {20, 1}}, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPairAndLocate_DecreasingOrder(t *testing.T) {
	r := testReconciler(t)

	// Begin past end: measures and geometry follow the input order.
	points := []orb.Point{{80, 1}, {30, 1}}
	pairs, _, err := r.PairAndLocate(context.Background(), points, 5)
	if err != nil {
		t.Fatalf("PairAndLocate error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Measure != 80 || p.EndMeasure != 30 {
		t.Errorf("measures = %g, %g, want 80, 30", p.Measure, p.EndMeasure)
	}
	if p.Geometry[0] != (orb.Point{80, 0}) {
		t.Errorf("geometry starts at %v, want (80,0)", p.Geometry[0])
	}
}
