package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/snow-cannon-viewer/services/importer/internal/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.GetSugaredLogger().Fatalf("config error: %v", err)
	}
	if err := log.Init(cfg.Debug); err != nil {
		log.GetSugaredLogger().Fatalf("logger error: %v", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		log.Named("importer").Errorf("importer failed: %v", err)
		log.Sync()
		os.Exit(1)
	}
}
