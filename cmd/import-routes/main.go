package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/osm"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "routes.geojson", "Output route layer path")
	idProperty := flag.String("id-property", "RouteID", "Route ID property name in the output")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLon,maxLat,maxLon")
	wa := flag.Bool("wa", false, "Shortcut for --bbox 45.5,-124.9,49.1,-116.9 (Washington state)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: import-routes --input <file.osm.pbf> [--output routes.geojson] [--wa | --bbox minLat,minLon,maxLat,maxLon]")
		os.Exit(1)
	}

	// Parse bbox option.
	var opts osm.ExtractOptions
	if *wa {
		opts.BBox = osm.BBox{MinLat: 45.5, MaxLat: 49.1, MinLon: -124.9, MaxLon: -116.9}
		log.Println("Using Washington bounding box filter: lat [45.5, 49.1], lon [-124.9, -116.9]")
	} else if *bbox != "" {
		var minLat, minLon, maxLat, maxLon float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLon, &maxLat, &maxLon)
		if err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLon,maxLat,maxLon): %v", err)
		}
		opts.BBox = osm.BBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lon [%.4f, %.4f]", minLat, maxLat, minLon, maxLon)
	}

	start := time.Now()

	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Extracting routes...")
	layer, err := osm.ExtractRoutes(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to extract routes: %v", err)
	}

	log.Printf("Writing route layer to %s...", *output)
	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()
	if err := routes.WriteGeoJSON(out, layer, *idProperty); err != nil {
		log.Fatalf("Failed to write route layer: %v", err)
	}

	info, _ := os.Stat(*output)
	log.Printf("Done in %s. Output: %s (%.1f MB)",
		time.Since(start).Round(time.Millisecond), *output, float64(info.Size())/(1024*1024))
}
