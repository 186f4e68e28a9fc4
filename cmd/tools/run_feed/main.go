package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/david/volunteer-connect/internal/config"
	"github.com/david/volunteer-connect/internal/db"
	"github.com/david/volunteer-connect/internal/geo"
	"github.com/david/volunteer-connect/internal/ingest"
	"github.com/david/volunteer-connect/internal/logging"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
)

// run_feed runs the ingest pipeline from the command line: one provider with
// -provider, or every active provider without it. Pass -dry-run to skip
// persistence and just see what a feed would produce.
func main() {
	providerID := flag.String("provider", "", "provider ID to run (empty = all active)")
	dryRun := flag.Bool("dry-run", false, "extract and report without writing to the database")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall run timeout")
	flag.Parse()

	if err := run(*providerID, *dryRun, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(providerID string, dryRun bool, timeout time.Duration) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	registry, err := ingest.LoadRegistry("config/providers.yaml")
	if err != nil {
		return fmt.Errorf("load provider registry: %w", err)
	}
	tagDefs, err := registry.BuildTagDefs()
	if err != nil {
		return fmt.Errorf("compile tag rules: %w", err)
	}

	var markers ingest.MarkerStore = ingest.NewMemoryMarkerStore()
	var store ingest.InstanceStore
	if !dryRun {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := db.ApplyMigrations(ctx, pool, log); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		markers = db.NewMarkerStore(pool)
		store = db.NewStore(pool)
	}

	var geocoder ingest.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewClient(cfg.GeocoderURL)
	}

	pipeline := ingest.NewPipeline(markers, store, geocoder, ingest.NewTagger(tagDefs), log)
	source := ingest.NewFeedSource(ingest.NewRateLimitedFetcher(ingest.FetchConfig{}), ingest.NewCrawlFetcher())

	var stats map[string]ingest.RunStats
	if providerID == "" {
		stats = pipeline.RunAll(ctx, registry, source)
	} else {
		provider, err := registry.Provider(providerID)
		if err != nil {
			return err
		}
		records, err := source.Records(ctx, *provider)
		if err != nil {
			return fmt.Errorf("fetch records for %s: %w", providerID, err)
		}
		_, s, err := pipeline.RunProvider(ctx, *provider, records, ingest.NewAccumulator())
		if err != nil {
			return fmt.Errorf("run provider %s: %w", providerID, err)
		}
		stats = map[string]ingest.RunStats{providerID: s}
	}

	printStats(stats)
	return nil
}

func printStats(stats map[string]ingest.RunStats) {
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Provider", "Found", "Skipped", "Suppressed", "Emitted", "Warnings", "Store Fails", "Duration"})
	for _, id := range ids {
		s := stats[id]
		t.AppendRow(table.Row{
			s.ProviderID, s.Found, s.Skipped, s.Suppressed, s.Emitted, s.Warnings, s.StoreFails,
			s.Duration.Round(time.Millisecond),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
