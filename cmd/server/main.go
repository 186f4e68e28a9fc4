package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/david/volunteer-connect/internal/api"
	"github.com/david/volunteer-connect/internal/config"
	"github.com/david/volunteer-connect/internal/db"
	"github.com/david/volunteer-connect/internal/geo"
	"github.com/david/volunteer-connect/internal/ingest"
	"github.com/david/volunteer-connect/internal/logging"
	"github.com/david/volunteer-connect/internal/search"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	registry, err := ingest.LoadRegistry("config/providers.yaml")
	if err != nil {
		return fmt.Errorf("load provider registry: %w", err)
	}
	tagDefs, err := registry.BuildTagDefs()
	if err != nil {
		return fmt.Errorf("compile tag rules: %w", err)
	}

	var geocoder ingest.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewClient(cfg.GeocoderURL)
	}

	pipeline := ingest.NewPipeline(
		db.NewMarkerStore(pool),
		db.NewStore(pool),
		geocoder,
		ingest.NewTagger(tagDefs),
		log,
	)
	source := ingest.NewFeedSource(ingest.NewRateLimitedFetcher(ingest.FetchConfig{}), ingest.NewCrawlFetcher())

	merger := &search.Merger{
		Blacklist: db.NewBlacklistStore(pool),
		SigSecret: []byte(cfg.SigSecret),
		Log:       log,
	}

	srv := api.NewServer(api.Options{
		Pool:            pool,
		Merger:          merger,
		Pipeline:        pipeline,
		Registry:        registry,
		Source:          source,
		Log:             log,
		AdminToken:      cfg.AdminToken,
		SearchPageLimit: cfg.SearchPageLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		errCh <- srv.Start(cfg.Port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
