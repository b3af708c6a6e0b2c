package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/segment"
)

// maxRequestBytes bounds locate/segments request bodies.
const maxRequestBytes = 4 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	engine     *locate.Engine
	reconciler *segment.Reconciler
	radius     float64
	stats      StatsResponse
}

// NewHandlers creates handlers over the engine and reconciler.
// radius is the default segment search radius.
func NewHandlers(engine *locate.Engine, reconciler *segment.Reconciler, radius float64, stats StatsResponse) *Handlers {
	return &Handlers{
		engine:     engine,
		reconciler: reconciler,
		radius:     radius,
		stats:      stats,
	}
}

// HandleLocate handles POST /api/v1/locate.
func (h *Handlers) HandleLocate(w http.ResponseWriter, r *http.Request) {
	var req LocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "events")
		return
	}

	events := make([]locate.Event, len(req.Events))
	for i, e := range req.Events {
		ev, err := toEvent(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event", fmt.Sprintf("events[%d]", i))
			return
		}
		events[i] = ev
	}

	results, summary := h.engine.Batch(r.Context(), events)

	resp := LocateResponse{
		Results: make([]ResultJSON, len(results)),
		Summary: BatchSummaryJSON{
			Processed: summary.Processed,
			Errored:   summary.Errored,
			Remaining: summary.Remaining,
		},
	}
	for i, res := range results {
		rj := ResultJSON{
			RowID:       res.RowID,
			Error:       res.Err,
			Measure:     res.Measure,
			EndMeasure:  res.EndMeasure,
			Distance:    res.Distance,
			EndDistance: res.EndDistance,
		}
		if res.Geometry != nil {
			rj.Geometry = geojson.NewGeometry(res.Geometry)
		}
		resp.Results[i] = rj
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleSegments handles POST /api/v1/segments.
func (h *Handlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	var req SegmentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	points := make([]orb.Point, len(req.Points))
	for i, p := range req.Points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", fmt.Sprintf("points[%d]", i))
			return
		}
		points[i] = orb.Point{p.X, p.Y}
	}

	radius := req.Radius
	if radius <= 0 {
		radius = h.radius
	}

	pairs, summary, err := h.reconciler.PairAndLocate(r.Context(), points, radius)
	if err != nil {
		var invalid *locate.InvalidInputError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "invalid_input", invalid.Reason)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "request_cancelled", "")
		return
	}

	resp := SegmentsResponse{
		Segments: make([]SegmentJSON, len(pairs)),
		Summary: PairSummaryJSON{
			Pairs:     summary.Pairs,
			Matched:   summary.Matched,
			Discarded: summary.Discarded,
		},
	}
	for i, p := range pairs {
		resp.Segments[i] = SegmentJSON{
			SegmentID:   p.SegmentID,
			RouteID:     p.RouteID,
			Measure:     p.Measure,
			EndMeasure:  p.EndMeasure,
			Distance:    p.Distance,
			EndDistance: p.EndDistance,
			Geometry:    geojson.NewGeometry(p.Geometry),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

// toEvent maps an EventJSON onto the engine's event kinds.
func toEvent(e EventJSON) (locate.Event, error) {
	ev := locate.Event{RowID: e.RowID, RouteID: e.RouteID}
	switch {
	case e.Measure != nil && e.EndMeasure != nil:
		ev.Kind = locate.KindSegment
		ev.Measure = *e.Measure
		ev.EndMeasure = *e.EndMeasure
	case e.Measure != nil:
		ev.Kind = locate.KindPoint
		ev.Measure = *e.Measure
	case e.X != nil && e.Y != nil:
		ev.Kind = locate.KindUnmeasured
		ev.Geometry = orb.Point{*e.X, *e.Y}
	default:
		return ev, errors.New("need measure, measure+endmeasure, or x+y")
	}
	return ev, nil
}

// decodeJSON enforces Content-Type and parses the body, writing the
// error response itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
