package locate

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routeid"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

// NoRounding disables output rounding.
const NoRounding = -1

// Options configures an Engine.
type Options struct {
	// SuffixPolicy is applied when normalizing event route IDs to the
	// route layer's format.
	SuffixPolicy routeid.SuffixPolicy
	// RoundingDigits rounds output measures and distances to N decimal
	// digits. Intermediate computation is never rounded. NoRounding (or
	// any negative value) leaves outputs as computed.
	RoundingDigits int
	// Workers bounds Batch concurrency. Zero means NumCPU.
	Workers int
}

// DefaultOptions matches the original toolbox defaults: both suffixes
// permitted, no rounding.
func DefaultOptions() Options {
	return Options{SuffixPolicy: routeid.SuffixBoth, RoundingDigits: NoRounding}
}

// Engine locates events along a route layer. It holds no mutable state;
// one Engine may serve concurrent batches as long as the provider is not
// mutated underneath it.
type Engine struct {
	provider routes.Provider
	opts     Options
}

// NewEngine creates an engine over the given provider.
func NewEngine(provider routes.Provider, opts Options) (*Engine, error) {
	if provider == nil {
		return nil, &InvalidInputError{Reason: "nil route provider"}
	}
	return &Engine{provider: provider, opts: opts}, nil
}

// Locate converts one event into one located result. All failures are
// captured in the result's Err field; Locate never aborts a batch.
func (e *Engine) Locate(ev Event) Result {
	id, err := routeid.Normalize(ev.RouteID, e.opts.SuffixPolicy)
	if err != nil {
		return Result{RowID: ev.RowID, Err: fmt.Sprintf("invalid route id: %q", ev.RouteID)}
	}

	candidates := e.provider.Lookup(id)
	if len(candidates) == 0 {
		return Result{RowID: ev.RowID, Err: "route not found: " + id}
	}

	switch ev.Kind {
	case KindPoint, KindSegment:
		return e.locateByMeasure(ev, candidates)
	case KindUnmeasured:
		return e.locateByProjection(ev, candidates[0])
	}
	return Result{RowID: ev.RowID, Err: fmt.Sprintf("unknown event kind %d", ev.Kind)}
}

// locateByMeasure interpolates geometry at the event's measure(s).
// When several route features share the ID, the first candidate that
// yields geometry wins and scanning stops. Candidate order is whatever
// the provider returns, a deliberately weak guarantee.
func (e *Engine) locateByMeasure(ev Event, candidates []*routes.Route) Result {
	res := Result{RowID: ev.RowID}
	for _, route := range candidates {
		if ev.Kind == KindPoint {
			pt, err := route.Line.PointAtMeasure(ev.Measure)
			if err != nil {
				res.Err = err.Error()
				continue
			}
			res.Geometry = pt
			res.Measure = e.rounded(ev.Measure)
		} else {
			seg, err := route.Line.SegmentBetween(ev.Measure, ev.EndMeasure)
			if err != nil {
				res.Err = err.Error()
				continue
			}
			res.Geometry = seg
			res.Measure = e.rounded(ev.Measure)
			res.EndMeasure = e.rounded(ev.EndMeasure)
		}
		res.Err = ""
		break
	}
	return res
}

// locateByProjection snaps the event's raw geometry onto the route. A
// point snaps directly; a line snaps its first and last vertices and
// rebuilds the segment between the two measures, in call order even when
// that order is decreasing.
func (e *Engine) locateByProjection(ev Event, route *routes.Route) Result {
	res := Result{RowID: ev.RowID}

	switch g := ev.Geometry.(type) {
	case orb.Point:
		proj := route.Line.Project(g)
		res.Geometry = proj.Point
		res.Measure = e.rounded(proj.Measure)
		res.Distance = e.rounded(proj.Distance)

	case orb.LineString:
		if len(g) < 2 {
			res.Err = "input line has fewer than two vertices"
			return res
		}
		p1 := route.Line.Project(g[0])
		p2 := route.Line.Project(g[len(g)-1])
		seg, err := route.Line.SegmentBetween(p1.Measure, p2.Measure)
		if err != nil {
			res.Err = err.Error()
			return res
		}
		res.Geometry = seg
		res.Measure = e.rounded(p1.Measure)
		res.EndMeasure = e.rounded(p2.Measure)
		res.Distance = e.rounded(p1.Distance)
		res.EndDistance = e.rounded(p2.Distance)

	case nil:
		res.Err = "event geometry is null"

	default:
		res.Err = fmt.Sprintf("unsupported event geometry type %T", ev.Geometry)
	}
	return res
}

// Batch locates events concurrently, one worker pool task per row.
// Row results are independent; the output is re-sorted by RowID so
// callers that pair rows by parity can rely on input order. A cancelled
// context stops between rows, never mid-row: the rows finished so far
// are returned and Summary.Remaining counts the rest.
func (e *Engine) Batch(ctx context.Context, events []Event) ([]Result, Summary) {
	results := make([]*Result, len(events))

	workers := e.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)

	remaining := 0
	for i := range events {
		if ctx.Err() != nil {
			remaining = len(events) - i
			break
		}
		i := i
		g.Go(func() error {
			r := e.Locate(events[i])
			results[i] = &r
			return nil
		})
	}
	g.Wait()

	out := make([]Result, 0, len(events)-remaining)
	errored := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Err != "" {
			errored++
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowID < out[j].RowID })

	return out, Summary{Processed: len(out), Errored: errored, Remaining: remaining}
}

// rounded applies output rounding and boxes the value.
func (e *Engine) rounded(v float64) *float64 {
	if e.opts.RoundingDigits >= 0 {
		p := math.Pow(10, float64(e.opts.RoundingDigits))
		v = math.Round(v*p) / p
	}
	return &v
}
