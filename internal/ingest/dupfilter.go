package ingest

import (
	"context"

	"github.com/rs/zerolog"
)

// DuplicateFilter suppresses instances whose fingerprint was already marked,
// in this run or any earlier one. The backing store is the single shared
// mutable resource in the pipeline; its write is an idempotent set-if-absent
// keyed per fingerprint, so concurrent feeds touching disjoint fingerprints
// never contend.
type DuplicateFilter struct {
	store MarkerStore
	log   zerolog.Logger
}

func NewDuplicateFilter(store MarkerStore, log zerolog.Logger) *DuplicateFilter {
	return &DuplicateFilter{store: store, log: log}
}

// SeenBefore reports whether the fingerprint was already marked and durably
// marks it as a side effect. A store failure is non-fatal: it logs and
// reports "not seen", preferring the occasional duplicate over a falsely
// suppressed listing.
func (f *DuplicateFilter) SeenBefore(ctx context.Context, fingerprint string) bool {
	seen, err := f.store.Seen(ctx, fingerprint)
	if err != nil {
		f.log.Warn().Err(err).Str("fingerprint", fingerprint).
			Msg("marker store unavailable, treating as not seen")
		return false
	}
	return seen
}

// MemoryMarkerStore is an in-process MarkerStore for tests and dry runs.
type MemoryMarkerStore struct {
	seen map[string]struct{}
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{seen: make(map[string]struct{})}
}

func (m *MemoryMarkerStore) Seen(_ context.Context, fingerprint string) (bool, error) {
	if _, ok := m.seen[fingerprint]; ok {
		return true, nil
	}
	m.seen[fingerprint] = struct{}{}
	return false, nil
}
