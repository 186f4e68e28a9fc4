package ingest

import (
	"testing"

	"github.com/david/volunteer-connect/internal/models"
)

func baseInstance() models.Instance {
	return models.Instance{
		Title:       "Community Garden Workday",
		Description: "<p>Weed, water, and mulch.</p>",
		Org:         models.Organization{Name: "Green Streets", EIN: "12-3456789"},
		DetailURL:   "https://example.org/garden",
		Schedule:    models.Schedule{StartDate: date(2026, 9, 19)},
		Location:    models.Location{Street1: "123 Main St", City: "Portland", Region: "OR"},
	}
}

func TestComputeStableIDDeterministic(t *testing.T) {
	a := baseInstance()
	b := baseInstance()
	if ComputeStableID(&a) != ComputeStableID(&b) {
		t.Error("identical instances must hash identically")
	}
}

func TestComputeStableIDIgnoresStreetNumbers(t *testing.T) {
	a := baseInstance()
	b := baseInstance()
	b.Location.Street1 = "456 Main St"
	if ComputeStableID(&a) != ComputeStableID(&b) {
		t.Error("street numbers must not split near-duplicate listings")
	}

	c := baseInstance()
	c.Location.Street1 = "123 Oak Ave"
	if ComputeStableID(&a) == ComputeStableID(&c) {
		t.Error("different street names must hash differently")
	}
}

func TestComputeStableIDVariesByComponent(t *testing.T) {
	base := baseInstance()
	baseID := ComputeStableID(&base)

	tests := []struct {
		name   string
		mutate func(*models.Instance)
	}{
		{"schedule", func(i *models.Instance) { i.Schedule.StartDate = date(2026, 9, 26) }},
		{"title", func(i *models.Instance) { i.Title = "Community Garden Cleanup" }},
		{"org", func(i *models.Instance) { i.Org.EIN = "98-7654321" }},
		{"detail url", func(i *models.Instance) { i.DetailURL = "https://example.org/other" }},
		{"city", func(i *models.Instance) { i.Location.City = "Salem" }},
		{"virtual", func(i *models.Instance) { i.Location = models.Location{Virtual: true} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := baseInstance()
			tt.mutate(&inst)
			if ComputeStableID(&inst) == baseID {
				t.Errorf("changing %s must change the stable ID", tt.name)
			}
		})
	}
}

func TestFingerprintCollapsesAcrossProviders(t *testing.T) {
	// Same event posted through two feeds: different org record and detail
	// URL, same content. The stable IDs differ but the fingerprints collide,
	// which is what lets the duplicate filter suppress the second posting.
	a := baseInstance()
	b := baseInstance()
	b.Org = models.Organization{Name: "Green Streets Portland"}
	b.DetailURL = "https://feeds.example.com/mirror/garden"

	if ComputeStableID(&a) == ComputeStableID(&b) {
		t.Error("distinct postings must keep distinct stable IDs")
	}
	if Fingerprint(&a) != Fingerprint(&b) {
		t.Error("same content from two feeds must share a fingerprint")
	}
}

func TestFingerprintCaseInsensitiveTitle(t *testing.T) {
	a := baseInstance()
	b := baseInstance()
	b.Title = "COMMUNITY GARDEN WORKDAY"
	if Fingerprint(&a) != Fingerprint(&b) {
		t.Error("fingerprint must be case-insensitive on title")
	}
	if ComputeStableID(&a) == ComputeStableID(&b) {
		t.Error("stable ID keeps title casing")
	}
}

func TestFingerprintKeepsAddressDigits(t *testing.T) {
	a := baseInstance()
	b := baseInstance()
	b.Location.Street1 = "456 Main St"
	if Fingerprint(&a) == Fingerprint(&b) {
		t.Error("fingerprint uses the full address, digits included")
	}
}
