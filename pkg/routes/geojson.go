package routes

import (
	"fmt"
	"io"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
)

// LoadGeoJSON reads a route layer from a GeoJSON FeatureCollection of
// LineString or MultiLineString features. idProperty names the property
// holding the route ID. Per-vertex measures are read from a "measures"
// property (a number array parallel to the coordinates); when absent,
// measures are synthesized from cumulative planar length. Each part of a
// MultiLineString becomes its own route feature under the same ID.
func LoadGeoJSON(r io.Reader, idProperty string) (*Layer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read route layer: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse route layer: %w", err)
	}

	layer := NewLayer()
	for i, f := range fc.Features {
		id := f.Properties.MustString(idProperty, "")
		if id == "" {
			return nil, fmt.Errorf("feature %d: missing route id property %q", i, idProperty)
		}

		measures := measureProperty(f.Properties)

		switch g := f.Geometry.(type) {
		case orb.LineString:
			line, err := geom.FromLineString(g, measures)
			if err != nil {
				return nil, fmt.Errorf("feature %d (%s): %w", i, id, err)
			}
			layer.Add(id, line)
		case orb.MultiLineString:
			// Measures cannot be associated with individual parts, so
			// multipart routes always synthesize from length.
			for _, part := range g {
				line, err := geom.FromLineString(part, nil)
				if err != nil {
					return nil, fmt.Errorf("feature %d (%s): %w", i, id, err)
				}
				layer.Add(id, line)
			}
		default:
			return nil, fmt.Errorf("feature %d (%s): unsupported geometry type %T", i, id, f.Geometry)
		}
	}
	return layer, nil
}

// measureProperty extracts the "measures" property as a float slice, or
// nil when absent or malformed.
func measureProperty(props geojson.Properties) []float64 {
	raw, ok := props["measures"].([]interface{})
	if !ok {
		return nil
	}
	ms := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil
		}
		ms = append(ms, f)
	}
	return ms
}

// WriteGeoJSON writes the layer as a FeatureCollection, one LineString
// feature per route with its measures attached. Inverse of LoadGeoJSON.
func WriteGeoJSON(w io.Writer, layer *Layer, idProperty string) error {
	fc := geojson.NewFeatureCollection()

	// Emit in load order.
	features := make([]*Route, 0, layer.Len())
	for _, rs := range layer.byID {
		features = append(features, rs...)
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].seq < features[j].seq
	})

	for _, r := range features {
		f := geojson.NewFeature(r.Line.LineString())
		f.Properties[idProperty] = r.ID
		f.Properties["measures"] = r.Line.Measures()
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal route layer: %w", err)
	}
	_, err = w.Write(data)
	return err
}
