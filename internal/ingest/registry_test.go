package ingest

import (
	"testing"

	"github.com/david/volunteer-connect/internal/models"
)

func TestLoadRegistryEmbedded(t *testing.T) {
	reg, err := LoadRegistry("config/providers.yaml")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Providers) == 0 {
		t.Fatal("no providers loaded")
	}

	p, err := reg.Provider("handson")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Format != "spreadsheet" || !p.Active {
		t.Errorf("handson = %+v", p)
	}

	if _, err := reg.Provider("does-not-exist"); err == nil {
		t.Error("unknown provider must error")
	}
}

func TestBuildTagDefsFromRegistry(t *testing.T) {
	reg, err := LoadRegistry("config/providers.yaml")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	defs, err := reg.BuildTagDefs()
	if err != nil {
		t.Fatalf("BuildTagDefs: %v", err)
	}
	if len(defs) != len(reg.Tags) {
		t.Fatalf("got %d defs for %d tag configs", len(defs), len(reg.Tags))
	}

	tagger := NewTagger(defs)

	rec := &InstanceRecord{Instance: &models.Instance{
		Title:       "Beach Cleanup and Remembrance",
		Description: "Join the food bank crew after the beach cleanup.",
		Schedule:    models.Schedule{StartDate: date(2026, 9, 11)},
	}}
	applied := tagger.Tag(rec, FeedContext{ProviderID: "handson"})

	want := map[string]bool{"nature": true, "hunger": true, "september11": true, "vetted": true}
	for _, tag := range applied {
		if !want[tag] {
			t.Errorf("unexpected tag %q applied", tag)
		}
		delete(want, tag)
	}
	for tag := range want {
		t.Errorf("expected tag %q, applied = %v", tag, applied)
	}
}

func TestBuildRuleRejectsUnknownKind(t *testing.T) {
	_, err := buildRule(TagRuleConfig{Kind: "astrology"})
	if err == nil {
		t.Error("unknown rule kind must error")
	}
}
