package search

import (
	"context"
	"regexp"
	"sort"

	"github.com/rs/zerolog"
)

// contentSafetyPattern is a static policy carve-out applied to every result
// regardless of request parameters. Matched against title+snippet, never
// URLs.
var contentSafetyPattern = regexp.MustCompile(`(?i)\b(porn|xxx|escort|strip club|adult entertainment)\b`)

// Merger folds a flat, ordered hit list into merged groups. It is a pure
// single-threaded transformation over one request's results; the only
// external call is the batched blacklist lookup, and that one fails open.
type Merger struct {
	Blacklist Blacklist // optional; nil = nothing blacklisted
	SigSecret []byte
	Log       zerolog.Logger
}

// MergeOutput is the merger's answer for one request.
type MergeOutput struct {
	Groups          []*Group
	PreMergeCount   int // results entering the grouping phase
	BackendEstimate int
	MergedEstimate  int
}

// Merge runs the four merge phases over results in input order:
//
//  1. blacklist + content-safety removal
//  2. merge-key / URL-signature / start-date assignment
//  3. grouping by merge key, first occurrence wins
//  4. occurrence display-list computation
//
// and corrects the backend's result-count estimate by the locally observed
// merge ratio, since the backend can't see cross-provider duplicates.
func (m *Merger) Merge(ctx context.Context, results []*Result, backendEstimate int) *MergeOutput {
	// Phase 2 runs first for the keys: the blacklist is batched by merge
	// key, and key assignment is a pure function of each result.
	for _, r := range results {
		r.MergeKey = ComputeMergeKey(r.Title, r.Snippet, r.Location)
		r.URLSig = ComputeURLSig(m.SigSecret, r.URL, r.MergeKey)
		r.StartDate = parseStartDate(r.StartDateRaw)
	}

	kept := m.filterBlacklisted(ctx, results)

	groups := groupByMergeKey(kept)
	for _, g := range groups {
		computeDisplayLists(g)
	}

	out := &MergeOutput{
		Groups:          groups,
		PreMergeCount:   len(kept),
		BackendEstimate: backendEstimate,
		MergedEstimate:  backendEstimate,
	}
	if out.PreMergeCount > 0 {
		out.MergedEstimate = backendEstimate * len(groups) / out.PreMergeCount
	}
	return out
}

// filterBlacklisted drops blacklisted merge keys and content-safety matches.
// A blacklist store failure keeps everything: unknown means not blacklisted.
func (m *Merger) filterBlacklisted(ctx context.Context, results []*Result) []*Result {
	var entries map[string]BlacklistEntry
	if m.Blacklist != nil && len(results) > 0 {
		keys := make([]string, 0, len(results))
		for _, r := range results {
			keys = append(keys, r.MergeKey)
		}
		var err error
		entries, err = m.Blacklist.GetByIDs(ctx, keys)
		if err != nil {
			m.Log.Warn().Err(err).Msg("blacklist lookup failed, keeping all results")
			entries = nil
		}
	}

	kept := make([]*Result, 0, len(results))
	for _, r := range results {
		if _, blocked := entries[r.MergeKey]; blocked {
			continue
		}
		if contentSafetyPattern.MatchString(r.Title + " " + r.Snippet) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// groupByMergeKey walks results in input order. The first result for a key
// becomes the group's primary; later same-key results join its merged list
// unless an entry with the identical (start date, URL) pair is already
// there. Group order is first-occurrence order, and stays that way.
func groupByMergeKey(results []*Result) []*Group {
	var groups []*Group
	byKey := make(map[string]*Group, len(results))

	for _, r := range results {
		g, ok := byKey[r.MergeKey]
		if !ok {
			g = &Group{Primary: r, Merged: []*Result{r}}
			byKey[r.MergeKey] = g
			groups = append(groups, g)
			continue
		}
		if hasOccurrence(g, r) {
			continue
		}
		g.Merged = append(g.Merged, r)
	}
	return groups
}

func hasOccurrence(g *Group, r *Result) bool {
	for _, existing := range g.Merged {
		if existing.StartDate.Equal(r.StartDate) && existing.URL == r.URL {
			return true
		}
	}
	return false
}

// displayListCutoff is how many occurrences show before the rest collapse
// behind a "more" toggle.
const displayListCutoff = 3

// computeDisplayLists sorts a group's occurrences by start date and builds
// the "less"/"more" lists. The location column only renders when it changes
// from the previous line; an entry links out only when its URL differs from
// the primary's.
func computeDisplayLists(g *Group) {
	if len(g.Merged) <= 1 {
		return
	}

	sort.SliceStable(g.Merged, func(i, j int) bool {
		return g.Merged[i].StartDate.Before(g.Merged[j].StartDate)
	})

	entries := make([]DisplayEntry, 0, len(g.Merged))
	prevLocation := ""
	for _, r := range g.Merged {
		entry := DisplayEntry{
			URL:    r.URL,
			Linked: r.URL != g.Primary.URL,
		}
		if r.Location != prevLocation {
			entry.Location = r.Location
			prevLocation = r.Location
		}
		if !r.StartDate.Equal(sentinelStartDate) {
			entry.Date = r.StartDate.Format("January 2")
		}
		entries = append(entries, entry)
	}

	if len(entries) <= displayListCutoff {
		g.Less = entries
		return
	}
	g.Less = entries[:displayListCutoff]
	g.More = entries[displayListCutoff:]
}
