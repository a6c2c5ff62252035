package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/02loveslollipop/snow-cannon-viewer/services/api/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/api/db"
	httpserver "github.com/02loveslollipop/snow-cannon-viewer/services/api/http"
	"github.com/02loveslollipop/snow-cannon-viewer/services/api/observability"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.GetSugaredLogger().Fatalf("config error: %v", err)
	}

	if err := log.Init(cfg.Debug()); err != nil {
		log.GetSugaredLogger().Fatalf("logger error: %v", err)
	}
	defer log.Sync()
	logger := log.Named("api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("db connection error: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	metrics := observability.NewMetrics()

	var source geo.Source = geo.FileSource{Path: cfg.GeoJSONPath}
	if cfg.GeoJSONURL != "" {
		source = geo.URLSource{URL: cfg.GeoJSONURL, Client: &http.Client{Timeout: cfg.GeoJSONTimeout}}
	}
	layer := geo.NewCache(source, geo.OnLoad(func(features int, took time.Duration) {
		metrics.ObserveGeoJSONLoad(features, nil)
		logger.Infow("geojson layer loaded", "features", features, "took", took)
	}))

	srv := httpserver.New(cfg, store, layer, metrics, httpserver.WithLogger(log.Named("http")))
	logger.Infof("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		logger.Errorf("server error: %v", err)
		os.Exit(1)
	}
}
