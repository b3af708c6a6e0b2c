// Package locate converts event rows into located geometry along a route
// layer: by measure interpolation when the event carries measures, or by
// nearest-point projection when it carries raw geometry instead.
package locate

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Kind discriminates the three event shapes.
type Kind int

const (
	// KindPoint is a single measure on a route.
	KindPoint Kind = iota
	// KindSegment is a begin/end measure pair on a route.
	KindSegment
	// KindUnmeasured carries raw point or line geometry and no measures;
	// locating it requires projection.
	KindUnmeasured
)

// Event is one input row. Exactly one kind applies; the fields the kind
// does not use are ignored.
type Event struct {
	RowID      int64
	RouteID    string // raw, as entered; normalized by the engine
	Kind       Kind
	Measure    float64
	EndMeasure float64
	Geometry   orb.Geometry // KindUnmeasured only: orb.Point or orb.LineString
}

// Result is the located output for one event row. For the measure path
// exactly one of Geometry and Err is set. For the projection path the
// measure and distance fields report where and how far the input snapped.
type Result struct {
	RowID       int64
	Geometry    orb.Geometry
	Err         string
	Measure     *float64
	EndMeasure  *float64
	Distance    *float64
	EndDistance *float64
}

// Summary aggregates a batch run for reporting.
type Summary struct {
	Processed int // rows that produced a Result
	Errored   int // rows whose Result carries an error
	Remaining int // rows skipped because the batch was cancelled
}

// InvalidInputError is a call-level precondition failure. Unlike per-row
// diagnostics it aborts the whole operation before any row is processed.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}
