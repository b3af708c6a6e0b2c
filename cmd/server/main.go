package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/api"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/config"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/locate"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routes"
	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/segment"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to server configuration")
	flag.Parse()

	start := time.Now()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load route layer.
	log.Printf("Loading routes from %s...", cfg.Routes.Path)
	f, err := os.Open(cfg.Routes.Path)
	if err != nil {
		log.Fatalf("Failed to open route layer: %v", err)
	}
	layer, err := routes.LoadGeoJSON(f, cfg.Routes.IDProperty)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to load route layer: %v", err)
	}
	log.Printf("Loaded %d route features", layer.Len())

	// Build locating engine and segment reconciler.
	opts := locate.Options{
		SuffixPolicy:   cfg.Locator.Policy(),
		RoundingDigits: cfg.Locator.Digits(),
		Workers:        cfg.Locator.Workers,
	}
	engine, err := locate.NewEngine(layer, opts)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	reconciler, err := segment.NewReconciler(layer, opts)
	if err != nil {
		log.Fatalf("Failed to build reconciler: %v", err)
	}

	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	// Setup HTTP server.
	srvCfg := api.DefaultConfig(cfg.Server.Addr)
	if cfg.Server.ReadTimeoutMS > 0 {
		srvCfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond
	}
	if cfg.Server.WriteTimeoutMS > 0 {
		srvCfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond
	}
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin

	stats := api.StatsResponse{
		NumRoutes:    layer.Len(),
		SuffixPolicy: cfg.Locator.SuffixPolicy,
		SearchRadius: cfg.Locator.SearchRadius,
	}

	handlers := api.NewHandlers(engine, reconciler, cfg.Locator.SearchRadius, stats)
	srv := api.NewServer(srvCfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
