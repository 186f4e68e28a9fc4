package ingest

import (
	"context"
	"io"
	"time"
)

// RawRecord is one record as delivered by a feed source: an ordered mapping
// from field name to raw string value, plus a per-field "row updated"
// timestamp when the source provides one.
type RawRecord struct {
	Fields []RawField
	byName map[string]int
}

// RawField is a single (name, value) pair from a feed record.
type RawField struct {
	Name      string
	Value     string
	UpdatedAt time.Time // zero when the source has no per-field timestamp
}

// NewRawRecord builds a RawRecord preserving field order. Later duplicates of
// a field name win on lookup, matching spreadsheet re-export behavior.
func NewRawRecord(fields []RawField) *RawRecord {
	r := &RawRecord{Fields: fields, byName: make(map[string]int, len(fields))}
	for i, f := range fields {
		r.byName[f.Name] = i
	}
	return r
}

// Get returns the raw value for a field name, or "" when absent.
func (r *RawRecord) Get(name string) string {
	if i, ok := r.byName[name]; ok {
		return r.Fields[i].Value
	}
	return ""
}

// Set adds or overwrites a field, keeping first-seen order for existing names.
func (r *RawRecord) Set(name, value string) {
	if i, ok := r.byName[name]; ok {
		r.Fields[i].Value = value
		return
	}
	r.byName[name] = len(r.Fields)
	r.Fields = append(r.Fields, RawField{Name: name, Value: value})
}

// WarningKind classifies recoverable extraction problems.
type WarningKind string

const (
	WarnBadDate       WarningKind = "bad_date"
	WarnBadTime       WarningKind = "bad_time"
	WarnBadNumber     WarningKind = "bad_number"
	WarnUnknownBool   WarningKind = "unknown_bool"
	WarnBadFrequency  WarningKind = "bad_frequency"
	WarnVirtualMixed  WarningKind = "virtual_with_address"
	WarnUnknownHeader WarningKind = "unknown_header"
)

// Warning is attached to a record instead of failing it. Only a missing title
// is fatal to a record (ErrMissingTitle); everything else degrades.
type Warning struct {
	Kind  WarningKind
	Field string
	Value string
}

// TriState is the normalized form of boolean-ish feed values
// ("yes"/"no"/"y"/"n"/blank). Unknown is treated as false downstream but
// surfaces as a warning so feed owners can fix their data.
type TriState int

const (
	TriUnknown TriState = iota
	TriFalse
	TriTrue
)

// Bool collapses the tri-state to the downstream boolean.
func (t TriState) Bool() bool { return t == TriTrue }

// FetchedDocument is the raw result of fetching one feed document.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw feed content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// MarkerStore is the persistent duplicate-marker set. Seen records the
// fingerprint and reports whether it was already present; writing an existing
// marker is a no-op, not an error.
type MarkerStore interface {
	Seen(ctx context.Context, fingerprint string) (bool, error)
}

// GeocodeResult is the geocoder's answer for an address string.
type GeocodeResult struct {
	NormalizedAddress string
	Latitude          float64
	Longitude         float64
	Accuracy          int // provider accuracy tier, 0 = unknown
}

// Geocoder resolves an address to coordinates or fails with an error. The
// pipeline never retries or caches; a failure just means no coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}
