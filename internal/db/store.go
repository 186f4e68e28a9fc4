package db

import (
	"context"
	"fmt"

	"github.com/david/volunteer-connect/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists unwound canonical instances keyed by stable ID, so a
// re-crawl of the same source updates rows instead of duplicating them.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SaveInstance(ctx context.Context, inst models.Instance) error {
	var lat, lon interface{}
	if inst.Location.Geocoded {
		lat = inst.Location.Latitude
		lon = inst.Location.Longitude
	}

	var startDate, endDate, lastUpdated interface{}
	if !inst.Schedule.OpenEnded && !inst.Schedule.StartDate.IsZero() {
		startDate = inst.Schedule.StartDate
	}
	if !inst.Schedule.OpenEnded && !inst.Schedule.EndDate.IsZero() {
		endDate = inst.Schedule.EndDate
	}
	if !inst.LastUpdated.IsZero() {
		lastUpdated = inst.LastUpdated
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO instances (
			stable_id, title, description, abstract, org_name,
			org_ein, org_url, provider, detail_url, minimum_age,
			tags, open_ended, start_date, end_date, start_time,
			end_time, hours_per_week, recurrence, virtual, venue,
			street1, street2, city, region, postal_code,
			country, latitude, longitude, last_updated
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25,
			$26, $27, $28, $29
		)
		ON CONFLICT (stable_id) DO UPDATE SET
			updated_at = NOW(),
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			abstract = EXCLUDED.abstract,
			tags = EXCLUDED.tags,
			minimum_age = EXCLUDED.minimum_age,
			latitude = COALESCE(EXCLUDED.latitude, instances.latitude),
			longitude = COALESCE(EXCLUDED.longitude, instances.longitude),
			last_updated = COALESCE(EXCLUDED.last_updated, instances.last_updated)
	`,
		inst.StableID, inst.Title, inst.Description, inst.Abstract, inst.Org.Name,
		inst.Org.EIN, inst.Org.URL, inst.Provider, inst.DetailURL, inst.MinimumAge,
		inst.Tags, inst.Schedule.OpenEnded, startDate, endDate, inst.Schedule.StartTime,
		inst.Schedule.EndTime, inst.Schedule.HoursPerWeek, string(inst.Schedule.Recurrence), inst.Location.Virtual, inst.Location.Venue,
		inst.Location.Street1, inst.Location.Street2, inst.Location.City, inst.Location.Region, inst.Location.PostalCode,
		inst.Location.Country, lat, lon, lastUpdated,
	)
	if err != nil {
		return fmt.Errorf("instance upsert failed: %w", err)
	}
	return nil
}

// ListInstances returns up to limit instances for a provider, newest first.
// Empty provider means all providers.
func (s *Store) ListInstances(ctx context.Context, provider string, limit int) ([]models.Instance, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT stable_id, title, description, abstract, org_name,
		       org_ein, org_url, provider, detail_url, minimum_age,
		       tags, open_ended,
		       COALESCE(start_date, '0001-01-01T00:00:00Z'::timestamptz),
		       COALESCE(end_date, '0001-01-01T00:00:00Z'::timestamptz),
		       start_time,
		       end_time, hours_per_week, recurrence, virtual, venue,
		       street1, street2, city, region, postal_code, country
		FROM instances
		WHERE ($1 = '' OR provider = $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("instance list failed: %w", err)
	}
	defer rows.Close()

	var out []models.Instance
	for rows.Next() {
		var inst models.Instance
		var recurrence string
		if err := rows.Scan(
			&inst.StableID, &inst.Title, &inst.Description, &inst.Abstract, &inst.Org.Name,
			&inst.Org.EIN, &inst.Org.URL, &inst.Provider, &inst.DetailURL, &inst.MinimumAge,
			&inst.Tags, &inst.Schedule.OpenEnded, &inst.Schedule.StartDate, &inst.Schedule.EndDate, &inst.Schedule.StartTime,
			&inst.Schedule.EndTime, &inst.Schedule.HoursPerWeek, &recurrence, &inst.Location.Virtual, &inst.Location.Venue,
			&inst.Location.Street1, &inst.Location.Street2, &inst.Location.City, &inst.Location.Region, &inst.Location.PostalCode, &inst.Location.Country,
		); err != nil {
			return nil, fmt.Errorf("instance scan failed: %w", err)
		}
		inst.Schedule.Recurrence = models.Recurrence(recurrence)
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("instance iteration failed: %w", err)
	}
	return out, nil
}
