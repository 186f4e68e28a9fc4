package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/david/volunteer-connect/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InstanceStore persists unwound canonical instances, keyed by stable ID.
type InstanceStore interface {
	SaveInstance(ctx context.Context, inst models.Instance) error
}

// RecordSource yields the raw records for one provider. CSV/XML/HTML parsing
// mechanics live behind this interface, per provider, outside the core.
type RecordSource interface {
	Records(ctx context.Context, provider ProviderConfig) ([]*RawRecord, error)
}

// Accumulator is the per-run working state that used to be global in older
// ingest scripts: created at run start, threaded through the call chain,
// discarded at run end.
type Accumulator struct {
	KnownOrgs     map[string]int
	KeywordCounts map[string]int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		KnownOrgs:     make(map[string]int),
		KeywordCounts: make(map[string]int),
	}
}

func (a *Accumulator) observe(opp *models.Opportunity) {
	if name := strings.ToLower(opp.Org.Name); name != "" {
		a.KnownOrgs[name]++
	}
	for _, w := range strings.Fields(strings.ToLower(opp.Title)) {
		a.KeywordCounts[w]++
	}
}

// RunStats holds metrics about one provider run.
type RunStats struct {
	RunID      string
	ProviderID string
	Found      int // raw records seen
	Skipped    int // records with no title
	Suppressed int // instances caught by the duplicate filter
	Emitted    int // instances that made it through
	Warnings   int
	StoreFails int
	Failed     bool // run aborted or feed batch never arrived
	Duration   time.Duration
}

// Pipeline drives one feed's records through extraction, unwinding,
// stable-ID computation, duplicate filtering and tagging, strictly in input
// order so first-occurrence-wins dedup holds within the feed.
type Pipeline struct {
	Markers  MarkerStore
	Store    InstanceStore // optional; nil = don't persist
	Geocoder Geocoder      // optional; nil = no coordinates
	Tagger   *Tagger
	Log      zerolog.Logger
}

func NewPipeline(markers MarkerStore, store InstanceStore, geocoder Geocoder, tagger *Tagger, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Markers:  markers,
		Store:    store,
		Geocoder: geocoder,
		Tagger:   tagger,
		Log:      log,
	}
}

// RunProvider processes one feed's records sequentially and returns the
// emitted instances plus run stats. Individual bad records are skipped, not
// fatal; the error return is reserved for a malformed batch upstream.
func (p *Pipeline) RunProvider(ctx context.Context, provider ProviderConfig, records []*RawRecord, acc *Accumulator) ([]models.Instance, RunStats, error) {
	start := time.Now()
	stats := RunStats{
		RunID:      uuid.NewString(),
		ProviderID: provider.ID,
	}
	log := p.Log.With().Str("provider", provider.ID).Str("run_id", stats.RunID).Logger()

	filter := NewDuplicateFilter(p.Markers, log)
	var emitted []models.Instance

	for _, raw := range records {
		if err := ctx.Err(); err != nil {
			return emitted, stats, err
		}
		stats.Found++

		opp, warnings, err := Extract(raw)
		if err != nil {
			if errors.Is(err, ErrMissingTitle) {
				stats.Skipped++
				log.Debug().Msg("skipping record with no title")
				continue
			}
			return emitted, stats, fmt.Errorf("extract: %w", err)
		}
		stats.Warnings += len(warnings)
		for _, w := range warnings {
			log.Debug().Str("field", w.Field).Str("kind", string(w.Kind)).Str("value", w.Value).
				Msg("field degraded during extraction")
		}

		opp.Provider = provider.ID
		if acc != nil {
			acc.observe(opp)
		}
		p.geocodeLocations(ctx, opp, log)

		for _, inst := range Unwind(opp) {
			if filter.SeenBefore(ctx, Fingerprint(&inst)) {
				stats.Suppressed++
				continue
			}
			if p.Tagger != nil {
				p.Tagger.Tag(&InstanceRecord{Instance: &inst}, FeedContext{ProviderID: provider.ID})
			}
			if p.Store != nil {
				if err := p.Store.SaveInstance(ctx, inst); err != nil {
					stats.StoreFails++
					log.Warn().Err(err).Str("stable_id", inst.StableID).Msg("failed to save instance")
				}
			}
			emitted = append(emitted, inst)
			stats.Emitted++
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("found", stats.Found).
		Int("emitted", stats.Emitted).
		Int("suppressed", stats.Suppressed).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("provider run complete")
	return emitted, stats, nil
}

// geocodeLocations fills in coordinates for physical locations that lack
// them. Geocoder failure just means no coordinates; the record proceeds.
func (p *Pipeline) geocodeLocations(ctx context.Context, opp *models.Opportunity, log zerolog.Logger) {
	if p.Geocoder == nil {
		return
	}
	for i := range opp.Locations {
		loc := &opp.Locations[i]
		if loc.Virtual || loc.Geocoded || loc.FullAddress() == "" {
			continue
		}
		res, err := p.Geocoder.Geocode(ctx, loc.FullAddress())
		if err != nil {
			log.Warn().Err(err).Str("address", loc.FullAddress()).Msg("geocode failed, continuing without coordinates")
			continue
		}
		loc.Latitude = res.Latitude
		loc.Longitude = res.Longitude
		loc.Geocoded = true
	}
}

// RunAll runs every active provider from the registry, worker-per-feed.
// Each feed's stream stays strictly sequential internally; only whole feeds
// run concurrently. A feed that fails is reported in its own stats and does
// not affect the others.
func (p *Pipeline) RunAll(ctx context.Context, registry *Registry, source RecordSource) map[string]RunStats {
	results := make(map[string]RunStats)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, provider := range registry.Providers {
		if !provider.Active {
			continue
		}
		wg.Add(1)
		go func(provider ProviderConfig) {
			defer wg.Done()
			acc := NewAccumulator()

			records, err := source.Records(ctx, provider)
			if err != nil {
				// Malformed batch: fatal for this feed only.
				p.Log.Error().Err(err).Str("provider", provider.ID).Msg("feed batch failed")
				mu.Lock()
				results[provider.ID] = RunStats{ProviderID: provider.ID, Failed: true}
				mu.Unlock()
				return
			}

			_, stats, err := p.RunProvider(ctx, provider, records, acc)
			if err != nil {
				p.Log.Error().Err(err).Str("provider", provider.ID).Msg("provider run aborted")
				stats.Failed = true
			}
			mu.Lock()
			results[provider.ID] = stats
			mu.Unlock()
		}(provider)
	}

	wg.Wait()
	return results
}
