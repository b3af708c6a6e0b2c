package events

import (
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
)

// GeoJSONSink collects located results into a FeatureCollection and
// writes it on Close. Rows without geometry cannot be represented as
// features and are skipped; Skipped reports how many, so callers can
// point users at the CSV diagnostics instead.
type GeoJSONSink struct {
	w       io.Writer
	fc      *geojson.FeatureCollection
	Skipped int
}

// NewGeoJSONSink creates a sink writing to w.
func NewGeoJSONSink(w io.Writer) *GeoJSONSink {
	return &GeoJSONSink{w: w, fc: geojson.NewFeatureCollection()}
}

// Write implements Sink.
func (s *GeoJSONSink) Write(res locate.Result) error {
	if res.Geometry == nil {
		s.Skipped++
		return nil
	}
	f := geojson.NewFeature(res.Geometry)
	f.Properties["rowid"] = res.RowID
	if res.Measure != nil {
		f.Properties["measure"] = *res.Measure
	}
	if res.EndMeasure != nil {
		f.Properties["endmeasure"] = *res.EndMeasure
	}
	if res.Distance != nil {
		f.Properties["distance"] = *res.Distance
	}
	if res.EndDistance != nil {
		f.Properties["enddistance"] = *res.EndDistance
	}
	s.fc.Append(f)
	return nil
}

// Close marshals and writes the collection.
func (s *GeoJSONSink) Close() error {
	data, err := s.fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = s.w.Write(data)
	return err
}
