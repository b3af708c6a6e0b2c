package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/events"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routeid"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/segment"
)

func main() {
	routesPath := flag.String("routes", "", "Path to route layer GeoJSON")
	idProperty := flag.String("id-property", "RouteID", "Route ID property in the route layer")
	eventsPath := flag.String("events", "", "Path to events CSV")
	output := flag.String("output", "located.csv", "Output path")
	format := flag.String("format", "csv", "Output format: csv or geojson")
	suffix := flag.String("suffix", "both", "Suffix policy: none, increasing, decreasing, both")
	digits := flag.Int("digits", -1, "Round output measures/distances to N digits (-1 = off)")
	workers := flag.Int("workers", 0, "Batch worker count (0 = NumCPU)")
	pair := flag.Bool("pair", false, "Treat events as begin/end point pairs and emit segments")
	radius := flag.Float64("radius", 50, "Search radius for -pair, in layer units")
	flag.Parse()

	if *routesPath == "" || *eventsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: locate-events --routes <routes.geojson> --events <events.csv> [--pair] [flags]")
		os.Exit(1)
	}

	start := time.Now()

	log.Printf("Loading routes from %s...", *routesPath)
	rf, err := os.Open(*routesPath)
	if err != nil {
		log.Fatalf("Failed to open route layer: %v", err)
	}
	layer, err := routes.LoadGeoJSON(rf, *idProperty)
	rf.Close()
	if err != nil {
		log.Fatalf("Failed to load route layer: %v", err)
	}
	log.Printf("Loaded %d route features", layer.Len())

	ef, err := os.Open(*eventsPath)
	if err != nil {
		log.Fatalf("Failed to open events: %v", err)
	}
	defer ef.Close()
	source, err := events.NewCSVSource(ef)
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	evs, err := events.ReadAll(source)
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	log.Printf("Read %d event rows", len(evs))

	opts := locate.Options{
		SuffixPolicy:   suffixPolicy(*suffix),
		RoundingDigits: *digits,
		Workers:        *workers,
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer out.Close()

	if *pair {
		runPair(layer, opts, evs, *radius, out)
	} else {
		runLocate(layer, opts, evs, *format, out)
	}

	log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
}

// runLocate batch-locates the events and writes results.
func runLocate(layer *routes.Layer, opts locate.Options, evs []locate.Event, format string, out *os.File) {
	engine, err := locate.NewEngine(layer, opts)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	results, summary := engine.Batch(context.Background(), evs)

	switch format {
	case "csv":
		sink, err := events.NewCSVSink(out)
		if err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		for _, res := range results {
			if err := sink.Write(res); err != nil {
				log.Fatalf("Failed to write output: %v", err)
			}
		}
		if err := sink.Flush(); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
	case "geojson":
		sink := events.NewGeoJSONSink(out)
		for _, res := range results {
			sink.Write(res)
		}
		if err := sink.Close(); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		if sink.Skipped > 0 {
			log.Printf("Omitted %d rows without geometry from GeoJSON output", sink.Skipped)
		}
	default:
		log.Fatalf("Unknown output format: %s", format)
	}

	if summary.Errored > 0 {
		log.Printf("Warning: unable to locate %d out of %d events", summary.Errored, summary.Processed)
	}
	log.Printf("Located %d rows (%d errored)", summary.Processed, summary.Errored)
}

// runPair reconciles begin/end point pairs and writes segments as CSV.
func runPair(layer *routes.Layer, opts locate.Options, evs []locate.Event, radius float64, out *os.File) {
	points := make([]orb.Point, len(evs))
	for i, ev := range evs {
		pt, ok := ev.Geometry.(orb.Point)
		if !ok {
			log.Fatalf("Row %d: -pair requires x/y point events", ev.RowID)
		}
		points[i] = pt
	}

	reconciler, err := segment.NewReconciler(layer, opts)
	if err != nil {
		log.Fatalf("Failed to build reconciler: %v", err)
	}
	pairs, summary, err := reconciler.PairAndLocate(context.Background(), points, radius)
	if err != nil {
		log.Fatalf("Pairing failed: %v", err)
	}

	w := csv.NewWriter(out)
	w.Write([]string{"segmentid", "routeid", "measure", "endmeasure", "distance", "enddistance", "geometry"})
	for _, p := range pairs {
		w.Write([]string{
			strconv.Itoa(p.SegmentID),
			p.RouteID,
			strconv.FormatFloat(p.Measure, 'f', -1, 64),
			strconv.FormatFloat(p.EndMeasure, 'f', -1, 64),
			strconv.FormatFloat(p.Distance, 'f', -1, 64),
			strconv.FormatFloat(p.EndDistance, 'f', -1, 64),
			wkt.MarshalString(p.Geometry),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	if summary.Discarded > 0 {
		log.Printf("Discarded %d of %d pairs (endpoints on different routes)", summary.Discarded, summary.Pairs)
	}
	log.Printf("Emitted %d segments from %d pairs", summary.Matched, summary.Pairs)
}

func suffixPolicy(name string) routeid.SuffixPolicy {
	switch name {
	case "none":
		return routeid.SuffixNone
	case "increasing":
		return routeid.SuffixIncreasing
	case "decreasing":
		return routeid.SuffixDecreasing
	case "both":
		return routeid.SuffixBoth
	}
	log.Fatalf("Unknown suffix policy: %s", name)
	return routeid.SuffixBoth
}
