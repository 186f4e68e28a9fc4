package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MarkerStore is the Postgres duplicate-marker set. The insert is an
// idempotent set-if-absent keyed on the fingerprint, so concurrent feeds
// only ever contend on identical fingerprints.
type MarkerStore struct {
	pool *pgxpool.Pool
}

func NewMarkerStore(pool *pgxpool.Pool) *MarkerStore {
	return &MarkerStore{pool: pool}
}

// Seen records the fingerprint and reports whether it was already present.
// ON CONFLICT DO NOTHING makes re-marking a no-op: zero rows affected means
// the marker existed before this call.
func (s *MarkerStore) Seen(ctx context.Context, fingerprint string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO duplicate_markers (fingerprint) VALUES ($1) ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint)
	if err != nil {
		return false, fmt.Errorf("marker write failed: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}
