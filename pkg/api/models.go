package api

import "github.com/paulmach/orb/geojson"

// EventJSON is one event row in a locate request. Carrying measure and
// endmeasure makes it a segment event, measure alone a point event, and
// x/y alone an unmeasured point to be projected.
type EventJSON struct {
	RowID      int64    `json:"rowid"`
	RouteID    string   `json:"routeid"`
	Measure    *float64 `json:"measure,omitempty"`
	EndMeasure *float64 `json:"endmeasure,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
}

// LocateRequest is the JSON body for POST /api/v1/locate.
type LocateRequest struct {
	Events []EventJSON `json:"events"`
}

// ResultJSON is one located row in a locate response.
type ResultJSON struct {
	RowID       int64             `json:"rowid"`
	Error       string            `json:"error,omitempty"`
	Measure     *float64          `json:"measure,omitempty"`
	EndMeasure  *float64          `json:"endmeasure,omitempty"`
	Distance    *float64          `json:"distance,omitempty"`
	EndDistance *float64          `json:"enddistance,omitempty"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
}

// BatchSummaryJSON reports aggregate locate counts.
type BatchSummaryJSON struct {
	Processed int `json:"processed"`
	Errored   int `json:"errored"`
	Remaining int `json:"remaining"`
}

// LocateResponse is the JSON response for a locate request.
type LocateResponse struct {
	Results []ResultJSON     `json:"results"`
	Summary BatchSummaryJSON `json:"summary"`
}

// PointJSON is one coordinate pair.
type PointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SegmentsRequest is the JSON body for POST /api/v1/segments. Points are
// ordered begin/end pairs; Radius overrides the server's default search
// radius when positive.
type SegmentsRequest struct {
	Points []PointJSON `json:"points"`
	Radius float64     `json:"radius,omitempty"`
}

// SegmentJSON is one reconciled pair in a segments response.
type SegmentJSON struct {
	SegmentID   int               `json:"segmentid"`
	RouteID     string            `json:"routeid"`
	Measure     float64           `json:"measure"`
	EndMeasure  float64           `json:"endmeasure"`
	Distance    float64           `json:"distance"`
	EndDistance float64           `json:"enddistance"`
	Geometry    *geojson.Geometry `json:"geometry"`
}

// PairSummaryJSON reports aggregate pairing counts.
type PairSummaryJSON struct {
	Pairs     int `json:"pairs"`
	Matched   int `json:"matched"`
	Discarded int `json:"discarded"`
}

// SegmentsResponse is the JSON response for a segments request.
type SegmentsResponse struct {
	Segments []SegmentJSON   `json:"segments"`
	Summary  PairSummaryJSON `json:"summary"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumRoutes    int     `json:"num_routes"`
	SuffixPolicy string  `json:"suffix_policy"`
	SearchRadius float64 `json:"search_radius"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
