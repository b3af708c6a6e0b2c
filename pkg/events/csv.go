// Package events adapts tabular rows to the engine's Event and Result
// types. Sources yield one event at a time in stable order; sinks accept
// results one at a time. Both are plain sequential contracts with no
// random access.
package events

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
)

// Source yields events in stable row order. Next returns io.EOF after
// the last row.
type Source interface {
	Next() (locate.Event, error)
}

// Sink accepts located results one at a time.
type Sink interface {
	Write(res locate.Result) error
}

// ReadAll drains a source into a slice.
func ReadAll(src Source) ([]locate.Event, error) {
	var evs []locate.Event
	for {
		ev, err := src.Next()
		if err == io.EOF {
			return evs, nil
		}
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
}

// CSVSource reads events from a headed CSV stream. Recognized columns
// (case-insensitive): rowid, routeid, measure, endmeasure, x, y.
// A row with measure and endmeasure is a segment event, with measure
// alone a point event, and with x/y alone an unmeasured point event.
type CSVSource struct {
	r    *csv.Reader
	cols map[string]int
	row  int64
}

// NewCSVSource reads the header and prepares the source.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read event header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["routeid"]; !ok {
		return nil, fmt.Errorf("event table has no routeid column")
	}
	return &CSVSource{r: cr, cols: cols}, nil
}

// field returns the named cell of a record, or "".
func (s *CSVSource) field(record []string, name string) string {
	i, ok := s.cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Next implements Source.
func (s *CSVSource) Next() (locate.Event, error) {
	record, err := s.r.Read()
	if err != nil {
		return locate.Event{}, err
	}
	s.row++

	ev := locate.Event{RowID: s.row, RouteID: s.field(record, "routeid")}
	if raw := s.field(record, "rowid"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad rowid %q: %w", s.row, raw, err)
		}
		ev.RowID = id
	}

	measure := s.field(record, "measure")
	endMeasure := s.field(record, "endmeasure")
	x, y := s.field(record, "x"), s.field(record, "y")

	switch {
	case measure != "" && endMeasure != "":
		ev.Kind = locate.KindSegment
		if ev.Measure, err = strconv.ParseFloat(measure, 64); err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad measure %q: %w", s.row, measure, err)
		}
		if ev.EndMeasure, err = strconv.ParseFloat(endMeasure, 64); err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad endmeasure %q: %w", s.row, endMeasure, err)
		}
	case measure != "":
		ev.Kind = locate.KindPoint
		if ev.Measure, err = strconv.ParseFloat(measure, 64); err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad measure %q: %w", s.row, measure, err)
		}
	case x != "" && y != "":
		ev.Kind = locate.KindUnmeasured
		px, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad x %q: %w", s.row, x, err)
		}
		py, err := strconv.ParseFloat(y, 64)
		if err != nil {
			return locate.Event{}, fmt.Errorf("row %d: bad y %q: %w", s.row, y, err)
		}
		ev.Geometry = orb.Point{px, py}
	default:
		return locate.Event{}, fmt.Errorf("row %d: need measure, measure+endmeasure, or x+y", s.row)
	}
	return ev, nil
}

// CSVSink writes located results as CSV with WKT geometry.
type CSVSink struct {
	w *csv.Writer
}

// NewCSVSink writes the result header.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	err := cw.Write([]string{"rowid", "error", "measure", "endmeasure", "distance", "enddistance", "geometry"})
	if err != nil {
		return nil, err
	}
	return &CSVSink{w: cw}, nil
}

// Write implements Sink.
func (s *CSVSink) Write(res locate.Result) error {
	geometry := ""
	if res.Geometry != nil {
		geometry = wkt.MarshalString(res.Geometry)
	}
	return s.w.Write([]string{
		strconv.FormatInt(res.RowID, 10),
		res.Err,
		formatOptional(res.Measure),
		formatOptional(res.EndMeasure),
		formatOptional(res.Distance),
		formatOptional(res.EndDistance),
		geometry,
	})
}

// Flush flushes buffered rows and reports any write error.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
