package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/david/volunteer-connect/internal/models"
	"github.com/rs/zerolog"
)

type memoryInstanceStore struct {
	saved []models.Instance
}

func (m *memoryInstanceStore) SaveInstance(_ context.Context, inst models.Instance) error {
	m.saved = append(m.saved, inst)
	return nil
}

func testProvider() ProviderConfig {
	return ProviderConfig{ID: "testfeed", Name: "Test Feed", Format: "spreadsheet", Active: true}
}

func TestRunProviderEndToEnd(t *testing.T) {
	records := []*RawRecord{
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Park Cleanup"},
			{Name: "Start Date", Value: "2026-09-19"},
			{Name: "City", Value: "Oakland"},
		}),
		// Same content again: suppressed by the duplicate filter.
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Park Cleanup"},
			{Name: "Start Date", Value: "2026-09-19"},
			{Name: "City", Value: "Oakland"},
		}),
		// No title: skipped, not fatal.
		NewRawRecord([]RawField{
			{Name: "City", Value: "Berkeley"},
		}),
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Garden Workday"},
		}),
	}

	store := &memoryInstanceStore{}
	tagger := NewTagger([]TagDef{{
		Name:  "nature",
		Rules: []Rule{KeywordRule{Keywords: []string{"park", "garden"}}},
	}})
	p := NewPipeline(NewMemoryMarkerStore(), store, nil, tagger, zerolog.Nop())

	emitted, stats, err := p.RunProvider(context.Background(), testProvider(), records, NewAccumulator())
	if err != nil {
		t.Fatalf("RunProvider: %v", err)
	}

	if stats.Found != 4 || stats.Skipped != 1 || stats.Suppressed != 1 || stats.Emitted != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(emitted) != 2 || len(store.saved) != 2 {
		t.Fatalf("emitted %d, saved %d, want 2 each", len(emitted), len(store.saved))
	}
	for _, inst := range emitted {
		if inst.Provider != "testfeed" {
			t.Errorf("provider = %q", inst.Provider)
		}
		if len(inst.Tags) == 0 {
			t.Errorf("instance %q missing tags", inst.Title)
		}
	}
	// The title-only record gets placeholder schedule and location.
	if !emitted[1].Schedule.OpenEnded {
		t.Error("title-only record should unwind to an open-ended instance")
	}
}

func TestRunProviderGeocodesPhysicalLocations(t *testing.T) {
	records := []*RawRecord{
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Mural Painting"},
			{Name: "Street Address", Value: "500 Mission St"},
			{Name: "City", Value: "San Francisco"},
		}),
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Online Mentoring"},
			{Name: "Remote", Value: "yes"},
		}),
	}

	geocoder := &stubGeocoder{result: &GeocodeResult{Latitude: 37.78, Longitude: -122.39}}
	p := NewPipeline(NewMemoryMarkerStore(), nil, geocoder, nil, zerolog.Nop())

	emitted, _, err := p.RunProvider(context.Background(), testProvider(), records, nil)
	if err != nil {
		t.Fatalf("RunProvider: %v", err)
	}
	if len(emitted) != 2 {
		t.Fatalf("emitted %d, want 2", len(emitted))
	}
	if !emitted[0].Location.Geocoded || emitted[0].Location.Latitude != 37.78 {
		t.Errorf("physical location not geocoded: %+v", emitted[0].Location)
	}
	if emitted[1].Location.Geocoded {
		t.Error("virtual location must not be geocoded")
	}
	if geocoder.calls != 1 {
		t.Errorf("geocoder called %d times, want 1", geocoder.calls)
	}
}

type stubGeocoder struct {
	result *GeocodeResult
	err    error
	calls  int
}

func (g *stubGeocoder) Geocode(context.Context, string) (*GeocodeResult, error) {
	g.calls++
	return g.result, g.err
}

func TestRunProviderGeocoderFailureIsNonFatal(t *testing.T) {
	records := []*RawRecord{
		NewRawRecord([]RawField{
			{Name: "Title", Value: "Tree Planting"},
			{Name: "City", Value: "Denver"},
		}),
	}
	geocoder := &stubGeocoder{err: context.DeadlineExceeded}
	p := NewPipeline(NewMemoryMarkerStore(), nil, geocoder, nil, zerolog.Nop())

	emitted, _, err := p.RunProvider(context.Background(), testProvider(), records, nil)
	if err != nil {
		t.Fatalf("RunProvider: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("emitted %d, want 1", len(emitted))
	}
	if emitted[0].Location.Geocoded {
		t.Error("failed geocode must leave the location without coordinates")
	}
}

type staticSource struct {
	records map[string][]*RawRecord
}

func (s staticSource) Records(_ context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	return s.records[provider.ID], nil
}

type failingSource struct {
	good map[string][]*RawRecord
}

func (s failingSource) Records(_ context.Context, provider ProviderConfig) ([]*RawRecord, error) {
	records, ok := s.good[provider.ID]
	if !ok {
		return nil, errors.New("feed unreachable")
	}
	return records, nil
}

func TestRunAllMarksFailedProviders(t *testing.T) {
	registry := &Registry{Providers: []ProviderConfig{
		{ID: "healthy", Active: true},
		{ID: "broken", Active: true},
	}}
	source := failingSource{good: map[string][]*RawRecord{
		"healthy": {NewRawRecord([]RawField{{Name: "Title", Value: "Food Bank Shift"}})},
	}}

	p := NewPipeline(NewMemoryMarkerStore(), nil, nil, nil, zerolog.Nop())
	stats := p.RunAll(context.Background(), registry, source)

	if !stats["broken"].Failed {
		t.Error("provider with an unreachable feed must be marked failed")
	}
	if stats["healthy"].Failed || stats["healthy"].Emitted != 1 {
		t.Errorf("healthy stats = %+v", stats["healthy"])
	}
}

func TestRunAllSkipsInactiveProviders(t *testing.T) {
	registry := &Registry{Providers: []ProviderConfig{
		{ID: "alpha", Active: true},
		{ID: "beta", Active: false},
	}}
	source := staticSource{records: map[string][]*RawRecord{
		"alpha": {NewRawRecord([]RawField{{Name: "Title", Value: "Coat Drive"}})},
		"beta":  {NewRawRecord([]RawField{{Name: "Title", Value: "Should Not Run"}})},
	}}

	p := NewPipeline(NewMemoryMarkerStore(), nil, nil, nil, zerolog.Nop())
	stats := p.RunAll(context.Background(), registry, source)

	if _, ok := stats["beta"]; ok {
		t.Error("inactive provider must not run")
	}
	if stats["alpha"].Emitted != 1 {
		t.Errorf("alpha stats = %+v", stats["alpha"])
	}
}
