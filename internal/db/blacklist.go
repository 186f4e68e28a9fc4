package db

import (
	"context"
	"fmt"

	"github.com/david/volunteer-connect/internal/search"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BlacklistStore is the Postgres merge-key blacklist. Absent keys mean "not
// blacklisted"; the merger treats lookup failures the same way.
type BlacklistStore struct {
	pool *pgxpool.Pool
}

func NewBlacklistStore(pool *pgxpool.Pool) *BlacklistStore {
	return &BlacklistStore{pool: pool}
}

// GetByIDs batch-looks-up merge keys. Only present keys appear in the map.
func (s *BlacklistStore) GetByIDs(ctx context.Context, keys []string) (map[string]search.BlacklistEntry, error) {
	if len(keys) == 0 {
		return map[string]search.BlacklistEntry{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT merge_key, reason FROM blacklist WHERE merge_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("blacklist query failed: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]search.BlacklistEntry)
	for rows.Next() {
		var e search.BlacklistEntry
		if err := rows.Scan(&e.Key, &e.Reason); err != nil {
			return nil, fmt.Errorf("blacklist scan failed: %w", err)
		}
		entries[e.Key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blacklist iteration failed: %w", err)
	}
	return entries, nil
}

// Add inserts or refreshes a blacklist entry.
func (s *BlacklistStore) Add(ctx context.Context, key, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blacklist (merge_key, reason) VALUES ($1, $2)
		 ON CONFLICT (merge_key) DO UPDATE SET reason = EXCLUDED.reason`,
		key, reason)
	if err != nil {
		return fmt.Errorf("blacklist insert failed: %w", err)
	}
	return nil
}
