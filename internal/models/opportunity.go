package models

import (
	"fmt"
	"strings"
	"time"
)

// Recurrence is the closed set of schedule repetition rules. Feed values that
// don't map onto one of these degrade to RecurrenceNone during extraction.
type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// Organization is the sponsoring org reference attached to an opportunity.
type Organization struct {
	Name string `json:"name"`
	EIN  string `json:"ein,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Identity returns the EIN when present, else the org URL, else the name.
// This is the org component fed into stable-ID computation.
func (o Organization) Identity() string {
	if o.EIN != "" {
		return o.EIN
	}
	if o.URL != "" {
		return o.URL
	}
	return o.Name
}

// Schedule describes one date/time window for an opportunity. If OpenEnded is
// true all other fields are ignored on output.
type Schedule struct {
	OpenEnded    bool       `json:"open_ended"`
	StartDate    time.Time  `json:"start_date,omitempty"`
	EndDate      time.Time  `json:"end_date,omitempty"`
	StartTime    string     `json:"start_time,omitempty"` // "15:04", empty = unspecified
	EndTime      string     `json:"end_time,omitempty"`
	HoursPerWeek int        `json:"hours_per_week,omitempty"`
	Recurrence   Recurrence `json:"recurrence,omitempty"`
}

// Signature composes the open-ended flag, date range, times, commitment hours
// and recurrence into one deterministic string. Both the stable ID and the
// duplicate-marker fingerprint embed it.
func (s Schedule) Signature() string {
	if s.OpenEnded {
		return "openended"
	}
	var b strings.Builder
	b.WriteString("fixed:")
	b.WriteString(s.StartDate.Format("2006-01-02"))
	b.WriteString("/")
	if !s.EndDate.IsZero() {
		b.WriteString(s.EndDate.Format("2006-01-02"))
	}
	b.WriteString(":")
	b.WriteString(s.StartTime)
	b.WriteString("-")
	b.WriteString(s.EndTime)
	if s.HoursPerWeek > 0 {
		fmt.Fprintf(&b, ":hrs=%d", s.HoursPerWeek)
	}
	if s.Recurrence != "" && s.Recurrence != RecurrenceNone {
		b.WriteString(":")
		b.WriteString(string(s.Recurrence))
	}
	return b.String()
}

// Location is one place an opportunity happens. Virtual and physical address
// fields are mutually exclusive in valid output; the extractor resolves
// conflicting source data in favor of the virtual flag.
type Location struct {
	Virtual    bool    `json:"virtual"`
	Venue      string  `json:"venue,omitempty"`
	Street1    string  `json:"street1,omitempty"`
	Street2    string  `json:"street2,omitempty"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Geocoded   bool    `json:"geocoded,omitempty"`
}

// FullAddress joins the non-empty physical address parts with ", ".
// Virtual locations render as "virtual".
func (l Location) FullAddress() string {
	if l.Virtual {
		return "virtual"
	}
	parts := make([]string, 0, 7)
	for _, p := range []string{l.Venue, l.Street1, l.Street2, l.City, l.Region, l.PostalCode, l.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// Opportunity is a canonical volunteer listing before unwinding: all shared
// fields plus the full {schedule} x {location} cross product.
type Opportunity struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Abstract    string       `json:"abstract"`
	Org         Organization `json:"org"`
	Provider    string       `json:"provider"`
	DetailURL   string       `json:"detail_url"`
	MinimumAge  int          `json:"minimum_age,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Schedules   []Schedule   `json:"schedules,omitempty"`
	Locations   []Location   `json:"locations,omitempty"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Instance is one unwound (opportunity, schedule, location) combination.
// Exactly one schedule and one location, by construction.
type Instance struct {
	StableID    string       `json:"stable_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Abstract    string       `json:"abstract"`
	Org         Organization `json:"org"`
	Provider    string       `json:"provider"`
	DetailURL   string       `json:"detail_url"`
	MinimumAge  int          `json:"minimum_age,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Schedule    Schedule     `json:"schedule"`
	Location    Location     `json:"location"`
	LastUpdated time.Time    `json:"last_updated"`
}
