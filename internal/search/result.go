// Package search folds flat search-backend hits into grouped, deduplicated,
// display-ready results. Everything here is per-request and in-memory; the
// backend that produced the hits and the stores consulted during merging are
// external collaborators behind narrow interfaces.
package search

import (
	"context"
	"time"
)

// sentinelStartDate sorts results with missing or unparseable start dates
// after everything real. Chosen once; both sorting and structural dedup key
// off it.
var sentinelStartDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Result is one raw hit from the search backend, plus the fields the merger
// assigns (MergeKey, URLSig, StartDate). Results live for one request.
type Result struct {
	URL      string
	Title    string
	Snippet  string
	Location string
	ItemID   string // stable item ID from the ingest side
	Provider string

	StartDateRaw string // backend's date-range string, start component
	EndDateRaw   string
	Categories   []string
	Interest     int
	Quality      float64

	// Assigned by the merger.
	MergeKey  string
	URLSig    string
	StartDate time.Time
}

// Group is one merged display unit: a primary result plus every later hit
// that shared its merge key. Merged always contains the primary and is kept
// free of duplicate (start date, URL) pairs.
type Group struct {
	Primary *Result
	Merged  []*Result

	// Occurrence lists for display, computed in the final merge phase.
	Less []DisplayEntry
	More []DisplayEntry
}

// DisplayEntry is one line of a group's occurrence list. Location is empty
// when it repeats the previous entry's. Linked is false when the entry's URL
// matches the primary's, in which case renderers show plain text.
type DisplayEntry struct {
	Location string
	Date     string // "January 2" style
	URL      string
	Linked   bool
}

// BlacklistEntry marks a merge key as suppressed.
type BlacklistEntry struct {
	Key    string
	Reason string
}

// Blacklist is the external suppression store. An absent key means "not
// blacklisted"; a lookup failure is treated the same way by the merger.
type Blacklist interface {
	GetByIDs(ctx context.Context, keys []string) (map[string]BlacklistEntry, error)
}

// Backend is the narrow search-backend contract: a flat ordered hit list and
// the backend's own (duplicate-blind) total estimate.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]*Result, int, error)
}

// parseStartDate extracts the start datetime from a backend date-range
// string, falling back to the far-future sentinel.
func parseStartDate(raw string) time.Time {
	if raw == "" {
		return sentinelStartDate
	}
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC()
		}
	}
	return sentinelStartDate
}
