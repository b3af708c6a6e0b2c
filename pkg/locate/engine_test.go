package locate

import (
	"context"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

// testLayer holds route 005i as a straight line from (0,0) to (100,0)
// with measures 0..100, plus 410i offset to y=10.
func testLayer(t *testing.T) *routes.Layer {
	t.Helper()
	layer := routes.NewLayer()
	layer.Add("005i", mustLine(t, orb.LineString{{0, 0}, {100, 0}}, []float64{0, 100}))
	layer.Add("410i", mustLine(t, orb.LineString{{0, 10}, {100, 10}}, []float64{0, 100}))
	return layer
}

func mustLine(t *testing.T, ls orb.LineString, measures []float64) *geom.MeasuredPolyline {
	t.Helper()
	p, err := geom.FromLineString(ls, measures)
	if err != nil {
		t.Fatalf("FromLineString error: %v", err)
	}
	return p
}

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(testLayer(t), opts)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return e
}

func TestNewEngine_NilProvider(t *testing.T) {
	if _, err := NewEngine(nil, DefaultOptions()); err == nil {
		t.Error("nil provider should be rejected")
	}
}

func TestLocate_PointEvent(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindPoint, Measure: 5})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	pt, ok := res.Geometry.(orb.Point)
	if !ok {
		t.Fatalf("geometry type = %T, want orb.Point", res.Geometry)
	}
	if pt != (orb.Point{5, 0}) {
		t.Errorf("point = %v, want (5,0)", pt)
	}
	if res.Measure == nil || *res.Measure != 5 {
		t.Errorf("measure = %v, want 5", res.Measure)
	}
}

func TestLocate_PointEvent_LabelForm(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	// Label spellings normalize to the layer's LRS ids.
	res := e.Locate(Event{RowID: 1, RouteID: "I-5", Kind: KindPoint, Measure: 50})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
}

func TestLocate_MeasureOutOfRange(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindPoint, Measure: 500})
	if res.Err == "" {
		t.Fatal("out-of-range measure should error")
	}
	if !strings.Contains(res.Err, "out of range") {
		t.Errorf("error = %q, want measure range diagnostic", res.Err)
	}
	if res.Geometry != nil {
		t.Errorf("geometry should be nil on error, got %v", res.Geometry)
	}
}

func TestLocate_InvalidRouteID(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "bogus", Kind: KindPoint, Measure: 5})
	if !strings.Contains(res.Err, "invalid route id") {
		t.Errorf("error = %q, want invalid route id", res.Err)
	}
}

func TestLocate_RouteNotFound(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "999", Kind: KindPoint, Measure: 5})
	if res.Err != "route not found: 999i" {
		t.Errorf("error = %q, want route not found: 999i", res.Err)
	}
}

func TestLocate_SegmentEvent(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindSegment, Measure: 20, EndMeasure: 80})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	seg, ok := res.Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("geometry type = %T, want orb.LineString", res.Geometry)
	}
	if seg[0] != (orb.Point{20, 0}) || seg[len(seg)-1] != (orb.Point{80, 0}) {
		t.Errorf("segment endpoints = %v .. %v, want (20,0) .. (80,0)", seg[0], seg[len(seg)-1])
	}
	if res.EndMeasure == nil || *res.EndMeasure != 80 {
		t.Errorf("end measure = %v, want 80", res.EndMeasure)
	}
}

func TestLocate_SegmentEvent_ZeroLength(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindSegment, Measure: 40, EndMeasure: 40})
	if !strings.Contains(res.Err, "degenerate segment") {
		t.Errorf("error = %q, want degenerate segment", res.Err)
	}
}

func TestLocate_MultiCandidate_FirstSuccessWins(t *testing.T) {
	// Two features share the id 005i, covering measures 0..100 and
	// 100..200. A measure only the second can serve must still locate,
	// and the first feature's range error must be cleared.
	layer := routes.NewLayer()
	layer.Add("005i", mustLine(t, orb.LineString{{0, 0}, {100, 0}}, []float64{0, 100}))
	layer.Add("005i", mustLine(t, orb.LineString{{100, 5}, {200, 5}}, []float64{100, 200}))
	e, err := NewEngine(layer, DefaultOptions())
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindPoint, Measure: 150})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if pt := res.Geometry.(orb.Point); pt != (orb.Point{150, 5}) {
		t.Errorf("point = %v, want (150,5)", pt)
	}

	// A measure both can serve resolves on the first feature.
	res = e.Locate(Event{RowID: 2, RouteID: "005", Kind: KindPoint, Measure: 100})
	if pt := res.Geometry.(orb.Point); pt != (orb.Point{100, 0}) {
		t.Errorf("point = %v, want first feature's (100,0)", pt)
	}

	// A measure neither can serve keeps the last range error.
	res = e.Locate(Event{RowID: 3, RouteID: "005", Kind: KindPoint, Measure: 300})
	if !strings.Contains(res.Err, "out of range") {
		t.Errorf("error = %q, want range diagnostic", res.Err)
	}
}

func TestLocate_ProjectionPoint(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{
		RowID:    1,
		RouteID:  "005",
		Kind:     KindUnmeasured,
		Geometry: orb.Point{30, 7},
	})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if pt := res.Geometry.(orb.Point); pt != (orb.Point{30, 0}) {
		t.Errorf("snapped point = %v, want (30,0)", pt)
	}
	if res.Measure == nil || *res.Measure != 30 {
		t.Errorf("measure = %v, want 30", res.Measure)
	}
	if res.Distance == nil || *res.Distance != 7 {
		t.Errorf("distance = %v, want 7", res.Distance)
	}
}

func TestLocate_ProjectionLine(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{
		RowID:    1,
		RouteID:  "005",
		Kind:     KindUnmeasured,
		Geometry: orb.LineString{{70, 3}, {20, 2}},
	})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	seg := res.Geometry.(orb.LineString)
	// Decreasing input order is preserved in the output segment.
	if seg[0] != (orb.Point{70, 0}) || seg[len(seg)-1] != (orb.Point{20, 0}) {
		t.Errorf("segment endpoints = %v .. %v, want (70,0) .. (20,0)", seg[0], seg[len(seg)-1])
	}
	if *res.Measure != 70 || *res.EndMeasure != 20 {
		t.Errorf("measures = %g, %g, want 70, 20", *res.Measure, *res.EndMeasure)
	}
}

func TestLocate_ProjectionNilGeometry(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	res := e.Locate(Event{RowID: 1, RouteID: "005", Kind: KindUnmeasured})
	if res.Err != "event geometry is null" {
		t.Errorf("error = %q, want event geometry is null", res.Err)
	}
}

func TestLocate_Rounding(t *testing.T) {
	opts := DefaultOptions()
	opts.RoundingDigits = 2
	e := testEngine(t, opts)

	res := e.Locate(Event{
		RowID:    1,
		RouteID:  "005",
		Kind:     KindUnmeasured,
		Geometry: orb.Point{33.33333, 1.23456},
	})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if *res.Measure != 33.33 {
		t.Errorf("measure = %g, want 33.33", *res.Measure)
	}
	if *res.Distance != 1.23 {
		t.Errorf("distance = %g, want 1.23", *res.Distance)
	}
	// The snapped geometry itself is never rounded.
	if pt := res.Geometry.(orb.Point); pt[0] != 33.33333 {
		t.Errorf("geometry x = %g, want unrounded 33.33333", pt[0])
	}
}

func TestBatch(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 4
	e := testEngine(t, opts)

	events := []Event{
		{RowID: 3, RouteID: "005", Kind: KindPoint, Measure: 30},
		{RowID: 1, RouteID: "005", Kind: KindPoint, Measure: 10},
		{RowID: 4, RouteID: "bogus", Kind: KindPoint, Measure: 40},
		{RowID: 2, RouteID: "410", Kind: KindPoint, Measure: 20},
	}

	results, summary := e.Batch(context.Background(), events)
	if summary.Processed != 4 || summary.Errored != 1 || summary.Remaining != 0 {
		t.Fatalf("summary = %+v, want Processed 4, Errored 1, Remaining 0", summary)
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if results[i].RowID != want {
			t.Errorf("results[%d].RowID = %d, want %d (sorted by row)", i, results[i].RowID, want)
		}
	}
	if results[3].Err == "" {
		t.Error("row 4 should carry the parse error")
	}
}

func TestBatch_Cancelled(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := []Event{
		{RowID: 1, RouteID: "005", Kind: KindPoint, Measure: 10},
		{RowID: 2, RouteID: "005", Kind: KindPoint, Measure: 20},
	}
	results, summary := e.Batch(ctx, events)
	if summary.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", summary.Remaining)
	}
	if len(results) != 0 {
		t.Errorf("got %d results on a pre-cancelled context, want 0", len(results))
	}
}

func TestBatch_Empty(t *testing.T) {
	e := testEngine(t, DefaultOptions())

	results, summary := e.Batch(context.Background(), nil)
	if len(results) != 0 || summary.Processed != 0 {
		t.Errorf("empty batch: results = %v, summary = %+v", results, summary)
	}
}
