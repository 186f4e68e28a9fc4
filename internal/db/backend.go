package db

import (
	"context"
	"fmt"

	"github.com/david/volunteer-connect/internal/search"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchBackend serves flat hit lists out of the instances table. It is
// deliberately duplicate-blind: the same listing ingested from two providers
// comes back as two hits, and the merger downstream folds them.
type SearchBackend struct {
	pool *pgxpool.Pool
}

func NewSearchBackend(pool *pgxpool.Pool) *SearchBackend {
	return &SearchBackend{pool: pool}
}

// Search matches the query against titles, abstracts and tags, newest start
// date first with undated listings last. The returned estimate is the
// pre-limit match count.
func (b *SearchBackend) Search(ctx context.Context, query string, limit int) ([]*search.Result, int, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"

	rows, err := b.pool.Query(ctx, `
		SELECT stable_id, title, abstract, detail_url, provider,
		       COALESCE(to_char(start_date, 'YYYY-MM-DD'), '') AS start_date,
		       COALESCE(to_char(end_date, 'YYYY-MM-DD'), '') AS end_date,
		       virtual, venue, street1, city, region, postal_code,
		       tags,
		       COUNT(*) OVER() AS total
		FROM instances
		WHERE $1 = '' OR title ILIKE $2 OR abstract ILIKE $2 OR $1 = ANY(tags)
		ORDER BY instances.start_date ASC NULLS LAST, updated_at DESC
		LIMIT $3
	`, query, pattern, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []*search.Result
	total := 0
	for rows.Next() {
		var r search.Result
		var virtual bool
		var venue, street1, city, region, postal string
		if err := rows.Scan(
			&r.ItemID, &r.Title, &r.Snippet, &r.URL, &r.Provider,
			&r.StartDateRaw, &r.EndDateRaw,
			&virtual, &venue, &street1, &city, &region, &postal,
			&r.Categories,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("search scan failed: %w", err)
		}
		r.Location = displayLocation(virtual, venue, street1, city, region, postal)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search iteration failed: %w", err)
	}
	return results, total, nil
}

// displayLocation renders the short location string shown in results. City
// and region carry the merge semantics; street detail stays out of it.
func displayLocation(virtual bool, venue, street1, city, region, postal string) string {
	if virtual {
		return "Virtual"
	}
	switch {
	case city != "" && region != "":
		return city + ", " + region
	case city != "":
		return city
	case region != "":
		return region
	case venue != "":
		return venue
	case street1 != "":
		return street1
	default:
		return postal
	}
}
