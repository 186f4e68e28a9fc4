package ingest

import (
	"github.com/david/volunteer-connect/internal/models"
)

// Unwind expands one opportunity into discrete (schedule, location)
// instances. An opportunity with S schedules and L locations yields S*L
// instances; missing schedules or locations are backfilled with a single
// placeholder so every opportunity emits at least one instance.
//
// Emission order is schedule-major, location-minor. Stable IDs are pure
// hashes of instance contents so they don't depend on this order, but
// deterministic emission keeps duplicate suppression reproducible run to run.
func Unwind(opp *models.Opportunity) []models.Instance {
	schedules := opp.Schedules
	if len(schedules) == 0 {
		// Epoch start, unbounded end: the open-ended placeholder.
		schedules = []models.Schedule{{OpenEnded: true}}
	}
	locations := opp.Locations
	if len(locations) == 0 {
		// Non-virtual placeholder with unknown coordinates.
		locations = []models.Location{{}}
	}

	instances := make([]models.Instance, 0, len(schedules)*len(locations))
	for _, schedule := range schedules {
		for _, location := range locations {
			inst := models.Instance{
				Title:       opp.Title,
				Description: opp.Description,
				Abstract:    opp.Abstract,
				Org:         opp.Org,
				Provider:    opp.Provider,
				DetailURL:   opp.DetailURL,
				MinimumAge:  opp.MinimumAge,
				Tags:        append([]string(nil), opp.Tags...),
				Schedule:    schedule,
				Location:    location,
				LastUpdated: opp.LastUpdated,
			}
			inst.StableID = ComputeStableID(&inst)
			instances = append(instances, inst)
		}
	}
	return instances
}
