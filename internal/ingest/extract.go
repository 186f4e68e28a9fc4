package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/david/volunteer-connect/internal/models"
)

// ErrMissingTitle is the one fatal extraction error: callers skip the record
// and keep the feed going.
var ErrMissingTitle = errors.New("record has no title")

// Canonical field names. Feed headers are classified onto these before any
// value parsing happens.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldOrgName      = "org_name"
	FieldOrgEIN       = "org_ein"
	FieldOrgURL       = "org_url"
	FieldDetailURL    = "detail_url"
	FieldStartDate    = "start_date"
	FieldEndDate      = "end_date"
	FieldStartTime    = "start_time"
	FieldEndTime      = "end_time"
	FieldHoursPerWeek = "hours_per_week"
	FieldFrequency    = "frequency"
	FieldOpenEnded    = "open_ended"
	FieldVirtual      = "virtual"
	FieldVenue        = "venue"
	FieldStreet1      = "street1"
	FieldStreet2      = "street2"
	FieldCity         = "city"
	FieldRegion       = "region"
	FieldPostalCode   = "postal_code"
	FieldCountry      = "country"
	FieldMinimumAge   = "minimum_age"
	FieldLastUpdated  = "last_updated"
)

// headerRule maps a raw header name onto a canonical field. Rules are
// evaluated in order; the first match wins, so more specific predicates must
// come before broader ones (e.g. "start time" before "start").
type headerRule struct {
	Match func(header string) bool
	Field string
}

func containsAny(subs ...string) func(string) bool {
	return func(header string) bool {
		for _, sub := range subs {
			if strings.Contains(header, sub) {
				return true
			}
		}
		return false
	}
}

var headerRules = []headerRule{
	{containsAny("opportunity title", "event title", "title", "opportunity name"), FieldTitle},
	{containsAny("description", "details", "summary"), FieldDescription},
	{containsAny("organization name", "org name", "sponsor", "organization"), FieldOrgName},
	{containsAny("ein", "tax id"), FieldOrgEIN},
	{containsAny("org url", "organization url", "org website"), FieldOrgURL},
	{containsAny("detail url", "link", "url", "website"), FieldDetailURL},
	{containsAny("start time", "begin time"), FieldStartTime},
	{containsAny("end time", "finish time"), FieldEndTime},
	{containsAny("start date", "begins", "start"), FieldStartDate},
	{containsAny("end date", "ends", "through", "end"), FieldEndDate},
	{containsAny("hours per week", "commitment", "hours"), FieldHoursPerWeek},
	{containsAny("frequency", "recurrence", "repeats", "how often"), FieldFrequency},
	{containsAny("open ended", "open-ended", "ongoing"), FieldOpenEnded},
	{containsAny("virtual", "remote", "online only"), FieldVirtual},
	{containsAny("venue", "location name", "site name"), FieldVenue},
	{containsAny("address 2", "address line 2", "street 2", "suite"), FieldStreet2},
	{containsAny("address", "street"), FieldStreet1},
	{containsAny("city", "town"), FieldCity},
	{containsAny("state", "province", "region"), FieldRegion},
	{containsAny("zip", "postal"), FieldPostalCode},
	{containsAny("country"), FieldCountry},
	{containsAny("minimum age", "min age", "age"), FieldMinimumAge},
	{containsAny("last updated", "updated", "modified"), FieldLastUpdated},
}

// ClassifyHeader maps a raw feed header onto a canonical field name.
func ClassifyHeader(header string) (string, bool) {
	h := strings.ToLower(cleanText(header))
	if h == "" {
		return "", false
	}
	for _, rule := range headerRules {
		if rule.Match(h) {
			return rule.Field, true
		}
	}
	return "", false
}

// frequencyHints maps substrings in feed frequency values to the closed
// recurrence enum. Checked in order so "biweekly" wins over "weekly".
var frequencyHints = []struct {
	Hint string
	Rec  models.Recurrence
}{
	{"biweekly", models.RecurrenceBiweekly},
	{"bi-weekly", models.RecurrenceBiweekly},
	{"every other week", models.RecurrenceBiweekly},
	{"daily", models.RecurrenceDaily},
	{"every day", models.RecurrenceDaily},
	{"weekly", models.RecurrenceWeekly},
	{"every week", models.RecurrenceWeekly},
	{"monthly", models.RecurrenceMonthly},
	{"every month", models.RecurrenceMonthly},
	{"once", models.RecurrenceNone},
	{"one time", models.RecurrenceNone},
	{"one-time", models.RecurrenceNone},
}

// Extract turns a raw feed record into a canonical opportunity plus the
// warnings accumulated along the way. Malformed values degrade to
// absent/defaulted fields; only a missing title is fatal.
func Extract(raw *RawRecord) (*models.Opportunity, []Warning, error) {
	canonical, warnings := classifyRecord(raw)

	title := cleanText(canonical.Get(FieldTitle))
	if title == "" {
		return nil, nil, ErrMissingTitle
	}

	opp := &models.Opportunity{
		Title:       sanitizeUTF8(title),
		Description: sanitizeHTML(sanitizeUTF8(canonical.Get(FieldDescription))),
		DetailURL:   strings.TrimSpace(canonical.Get(FieldDetailURL)),
		Org: models.Organization{
			Name: cleanText(canonical.Get(FieldOrgName)),
			EIN:  strings.TrimSpace(canonical.Get(FieldOrgEIN)),
			URL:  strings.TrimSpace(canonical.Get(FieldOrgURL)),
		},
	}
	opp.Abstract = TruncateText(HTMLToText(opp.Description), 280)

	if v := canonical.Get(FieldMinimumAge); strings.TrimSpace(v) != "" {
		age := parseLeadingInt(v)
		if age == 0 && !strings.HasPrefix(strings.TrimSpace(v), "0") {
			warnings = append(warnings, Warning{Kind: WarnBadNumber, Field: FieldMinimumAge, Value: v})
		}
		opp.MinimumAge = age
	}

	if v := canonical.Get(FieldLastUpdated); strings.TrimSpace(v) != "" {
		if t, err := parseDateRobust(v); err == nil {
			opp.LastUpdated = t
		} else {
			warnings = append(warnings, Warning{Kind: WarnBadDate, Field: FieldLastUpdated, Value: v})
		}
	}
	if opp.LastUpdated.IsZero() {
		opp.LastUpdated = latestFieldUpdate(raw)
	}

	schedule, schedWarnings := extractSchedule(canonical)
	warnings = append(warnings, schedWarnings...)
	if schedule != nil {
		opp.Schedules = append(opp.Schedules, *schedule)
	}

	location, locWarnings := extractLocation(canonical)
	warnings = append(warnings, locWarnings...)
	if location != nil {
		opp.Locations = append(opp.Locations, *location)
	}

	return opp, warnings, nil
}

// classifyRecord rewrites a record's raw headers onto canonical field names.
// Unclassifiable headers are dropped with a warning so feed owners can see
// which columns never reach extraction.
func classifyRecord(raw *RawRecord) (*RawRecord, []Warning) {
	out := NewRawRecord(nil)
	var warnings []Warning
	for _, f := range raw.Fields {
		field, ok := ClassifyHeader(f.Name)
		if !ok {
			if cleanText(f.Name) != "" {
				warnings = append(warnings, Warning{Kind: WarnUnknownHeader, Field: f.Name})
			}
			continue
		}
		if out.Get(field) == "" {
			out.Set(field, f.Value)
		}
	}
	return out, warnings
}

func extractSchedule(canonical *RawRecord) (*models.Schedule, []Warning) {
	var warnings []Warning

	openEnded, w := parseTriState(canonical.Get(FieldOpenEnded), FieldOpenEnded)
	if w != nil {
		warnings = append(warnings, *w)
	}

	s := models.Schedule{OpenEnded: openEnded.Bool(), Recurrence: models.RecurrenceNone}
	if s.OpenEnded {
		// Open-ended schedules carry no date/time fields on output.
		return &s, warnings
	}

	if v := canonical.Get(FieldStartDate); strings.TrimSpace(v) != "" {
		if t, err := parseDateRobust(v); err == nil {
			s.StartDate = t
		} else {
			warnings = append(warnings, Warning{Kind: WarnBadDate, Field: FieldStartDate, Value: v})
		}
	}
	if v := canonical.Get(FieldEndDate); strings.TrimSpace(v) != "" {
		if t, err := parseDateRobust(v); err == nil {
			s.EndDate = t
		} else {
			warnings = append(warnings, Warning{Kind: WarnBadDate, Field: FieldEndDate, Value: v})
		}
	}
	for _, tf := range []struct {
		field string
		dst   *string
	}{
		{FieldStartTime, &s.StartTime},
		{FieldEndTime, &s.EndTime},
	} {
		v := canonical.Get(tf.field)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if parsed := parseClockTime(v); parsed != "" {
			*tf.dst = parsed
		} else {
			warnings = append(warnings, Warning{Kind: WarnBadTime, Field: tf.field, Value: v})
		}
	}

	if v := canonical.Get(FieldHoursPerWeek); strings.TrimSpace(v) != "" {
		hours := parseLeadingInt(v)
		if hours == 0 && !strings.HasPrefix(strings.TrimSpace(v), "0") {
			warnings = append(warnings, Warning{Kind: WarnBadNumber, Field: FieldHoursPerWeek, Value: v})
		}
		s.HoursPerWeek = hours
	}

	if v := canonical.Get(FieldFrequency); strings.TrimSpace(v) != "" {
		rec, ok := mapFrequency(v)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnBadFrequency, Field: FieldFrequency, Value: v})
		}
		s.Recurrence = rec
	}

	if s.StartDate.IsZero() && s.EndDate.IsZero() && s.StartTime == "" && s.EndTime == "" &&
		s.HoursPerWeek == 0 && s.Recurrence == models.RecurrenceNone && len(warnings) == 0 {
		// Nothing schedule-shaped in the record; let the unwinder synthesize.
		return nil, warnings
	}
	return &s, warnings
}

func extractLocation(canonical *RawRecord) (*models.Location, []Warning) {
	var warnings []Warning

	virtual, w := parseTriState(canonical.Get(FieldVirtual), FieldVirtual)
	if w != nil {
		warnings = append(warnings, *w)
	}

	loc := models.Location{
		Venue:      cleanText(canonical.Get(FieldVenue)),
		Street1:    cleanText(canonical.Get(FieldStreet1)),
		Street2:    cleanText(canonical.Get(FieldStreet2)),
		City:       cleanText(canonical.Get(FieldCity)),
		Region:     cleanText(canonical.Get(FieldRegion)),
		PostalCode: cleanText(canonical.Get(FieldPostalCode)),
		Country:    cleanText(canonical.Get(FieldCountry)),
	}

	hasAddress := loc.Venue != "" || loc.Street1 != "" || loc.Street2 != "" ||
		loc.City != "" || loc.Region != "" || loc.PostalCode != "" || loc.Country != ""

	if virtual.Bool() {
		// Virtual wins over any physical address the source also shipped.
		if hasAddress {
			warnings = append(warnings, Warning{Kind: WarnVirtualMixed, Field: FieldVirtual})
		}
		return &models.Location{Virtual: true}, warnings
	}

	if !hasAddress {
		return nil, warnings
	}
	return &loc, warnings
}

// parseTriState normalizes boolean-ish feed values. A non-empty value that
// isn't recognizably yes/no yields TriUnknown plus a warning.
func parseTriState(v, field string) (TriState, *Warning) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return TriUnknown, nil
	case "yes", "y", "true", "1":
		return TriTrue, nil
	case "no", "n", "false", "0":
		return TriFalse, nil
	default:
		return TriUnknown, &Warning{Kind: WarnUnknownBool, Field: field, Value: v}
	}
}

// mapFrequency maps a raw frequency string onto the recurrence enum via
// case-insensitive substring containment. Unrecognized values degrade to
// RecurrenceNone with ok=false.
func mapFrequency(v string) (models.Recurrence, bool) {
	lower := strings.ToLower(v)
	for _, h := range frequencyHints {
		if strings.Contains(lower, h.Hint) {
			return h.Rec, true
		}
	}
	return models.RecurrenceNone, false
}

func latestFieldUpdate(raw *RawRecord) time.Time {
	var latest time.Time
	for _, f := range raw.Fields {
		if f.UpdatedAt.After(latest) {
			latest = f.UpdatedAt
		}
	}
	return latest
}
