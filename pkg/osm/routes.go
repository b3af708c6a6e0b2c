// Package osm builds a measured route layer from OpenStreetMap data.
// Ways carrying a highway route ref ("I 5", "US 101", "WA 8") are
// grouped by normalized route ID, chained end to end, and measured by
// cumulative great-circle length. This is an offline convenience for
// producing a route layer where no LRS export is available; authoritative
// layers come in as GeoJSON with real measures.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geo"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/geom"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routeid"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

// refHighways lists highway tag values that can carry a signed route.
var refHighways = map[string]bool{
	"motorway":   true,
	"trunk":      true,
	"primary":    true,
	"secondary":  true,
	"tertiary":   true,
	"motorway_link": false, // ramps share the mainline ref; skip them
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only ways with every node inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLon == 0 && b.MaxLon == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ExtractOptions configures route extraction.
type ExtractOptions struct {
	BBox BBox // if non-zero, filter ways to this bounding box
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	RouteID string
	NodeIDs []osm.NodeID
}

// ExtractRoutes reads an OSM PBF file and returns a route layer.
// The reader is consumed twice (seeks back to start for the second
// pass), so it must implement io.ReadSeeker.
func ExtractRoutes(ctx context.Context, rs io.ReadSeeker, opts ...ExtractOptions) (*routes.Layer, error) {
	var opt ExtractOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: scan ways for route refs, collecting referenced node IDs.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo
	var skippedRefs int

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !refHighways[w.Tags.Find("highway")] || len(w.Nodes) < 2 {
			continue
		}
		ref := w.Tags.Find("ref")
		if ref == "" {
			continue
		}

		id, err := routeid.Parse(ref)
		if err != nil {
			// Refs outside the route grammar (county roads, exit
			// numbers) are expected; count them and move on.
			skippedRefs++
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{
			RouteID: routeid.Render(id, routeid.SuffixNone),
			NodeIDs: nodeIDs,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d route ways, %d referenced nodes, %d non-route refs",
		len(ways), len(referencedNodes), skippedRefs)

	// Pass 2: scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	// Group ways by route ID and chain them into polylines.
	byRoute := make(map[string][][]osm.NodeID)
	order := []string{}
	var skippedWays, bboxFiltered int

wayLoop:
	for _, w := range ways {
		for _, id := range w.NodeIDs {
			lat, ok := nodeLat[id]
			if !ok {
				skippedWays++
				continue wayLoop
			}
			if useBBox && !opt.BBox.Contains(lat, nodeLon[id]) {
				bboxFiltered++
				continue wayLoop
			}
		}
		if _, seen := byRoute[w.RouteID]; !seen {
			order = append(order, w.RouteID)
		}
		byRoute[w.RouteID] = append(byRoute[w.RouteID], w.NodeIDs)
	}

	layer := routes.NewLayer()
	for _, id := range order {
		for _, chainIDs := range chain(byRoute[id]) {
			line, err := measuredLine(chainIDs, nodeLat, nodeLon)
			if err != nil {
				skippedWays++
				continue
			}
			layer.Add(id, line)
		}
	}

	if skippedWays > 0 {
		log.Printf("Warning: skipped %d ways due to missing node coordinates", skippedWays)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d ways outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d route features for %d route IDs", layer.Len(), len(order))

	return layer, nil
}

// chain greedily merges node paths that share an endpoint. Paths that
// cannot be joined stay separate features, which the layer supports as
// multiple candidates under one ID.
func chain(paths [][]osm.NodeID) [][]osm.NodeID {
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(paths) && !merged; i++ {
			for j := i + 1; j < len(paths) && !merged; j++ {
				if joined, ok := join(paths[i], paths[j]); ok {
					paths[i] = joined
					paths = append(paths[:j], paths[j+1:]...)
					merged = true
				}
			}
		}
	}
	return paths
}

// join connects two paths when one's end meets the other's start or end,
// reversing as needed.
func join(a, b []osm.NodeID) ([]osm.NodeID, bool) {
	switch {
	case a[len(a)-1] == b[0]:
		return append(a, b[1:]...), true
	case b[len(b)-1] == a[0]:
		return append(b, a[1:]...), true
	case a[len(a)-1] == b[len(b)-1]:
		return append(a, reverse(b)[1:]...), true
	case a[0] == b[0]:
		return append(reverse(a), b[1:]...), true
	}
	return nil, false
}

func reverse(ids []osm.NodeID) []osm.NodeID {
	out := make([]osm.NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// measuredLine builds a measured polyline from node IDs, accumulating
// great-circle meters as the measure.
func measuredLine(ids []osm.NodeID, nodeLat, nodeLon map[osm.NodeID]float64) (*geom.MeasuredPolyline, error) {
	vertices := make([]geom.Vertex, len(ids))
	cum := 0.0
	for i, id := range ids {
		lat, lon := nodeLat[id], nodeLon[id]
		if i > 0 {
			prev := ids[i-1]
			cum += geo.Haversine(nodeLat[prev], nodeLon[prev], lat, lon)
		}
		vertices[i] = geom.Vertex{Point: orb.Point{lon, lat}, M: cum}
	}
	return geom.New(vertices)
}
