package ingest

import (
	"errors"
	"testing"

	"github.com/david/volunteer-connect/internal/models"
)

func TestClassifyHeader(t *testing.T) {
	tests := []struct {
		header string
		field  string
		ok     bool
	}{
		{"Opportunity Title", FieldTitle, true},
		{"Event Title", FieldTitle, true},
		{"Description", FieldDescription, true},
		{"Organization Name", FieldOrgName, true},
		{"EIN", FieldOrgEIN, true},
		{"Start Date", FieldStartDate, true},
		{"Start Time", FieldStartTime, true}, // must not fall through to start date
		{"End Date", FieldEndDate, true},
		{"Hours per Week", FieldHoursPerWeek, true},
		{"How often", FieldFrequency, true},
		{"Ongoing?", FieldOpenEnded, true},
		{"Remote", FieldVirtual, true},
		{"Address Line 2", FieldStreet2, true},
		{"Street Address", FieldStreet1, true},
		{"City", FieldCity, true},
		{"State", FieldRegion, true},
		{"Zip Code", FieldPostalCode, true},
		{"Minimum Age", FieldMinimumAge, true},
		{"Last Updated", FieldLastUpdated, true},
		{"  TITLE  ", FieldTitle, true},
		{"", "", false},
		{"color of volunteer shirts", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			field, ok := ClassifyHeader(tt.header)
			if ok != tt.ok || field != tt.field {
				t.Errorf("ClassifyHeader(%q) = (%q, %v), want (%q, %v)", tt.header, field, ok, tt.field, tt.ok)
			}
		})
	}
}

func TestExtractFlagsUnknownHeaders(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Title", Value: "River Cleanup"},
		{Name: "color of volunteer shirts", Value: "orange"},
		{Name: "   ", Value: "blank names stay silent"},
	})
	_, warnings, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var unknown []string
	for _, w := range warnings {
		if w.Kind == WarnUnknownHeader {
			unknown = append(unknown, w.Field)
		}
	}
	if len(unknown) != 1 || unknown[0] != "color of volunteer shirts" {
		t.Errorf("unknown-header warnings = %v, want exactly the shirt column", unknown)
	}
}

func TestExtractMissingTitleIsFatal(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Description", Value: "help us plant trees"},
		{Name: "City", Value: "Oakland"},
	})
	_, _, err := Extract(raw)
	if !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
}

func TestExtractFullRecord(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Opportunity Title", Value: "  Beach   Cleanup  "},
		{Name: "Description", Value: "<p>Join us at the <b>shore</b>.</p><script>alert(1)</script>"},
		{Name: "Organization Name", Value: "Ocean Friends"},
		{Name: "Start Date", Value: "2026-10-01"},
		{Name: "End Date", Value: "10/15/2026"},
		{Name: "Start Time", Value: "9am"},
		{Name: "How often", Value: "Every other week"},
		{Name: "Minimum Age", Value: "18+ years"},
		{Name: "Street Address", Value: "123 Shoreline Dr"},
		{Name: "City", Value: "Santa Cruz"},
		{Name: "State", Value: "CA"},
	})

	opp, warnings, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if opp.Title != "Beach Cleanup" {
		t.Errorf("title = %q, want whitespace-normalized", opp.Title)
	}
	if opp.MinimumAge != 18 {
		t.Errorf("minimum age = %d, want 18", opp.MinimumAge)
	}
	if opp.Abstract != "Join us at the shore." {
		t.Errorf("abstract = %q", opp.Abstract)
	}
	if len(opp.Schedules) != 1 {
		t.Fatalf("expected one schedule, got %d", len(opp.Schedules))
	}
	s := opp.Schedules[0]
	if s.OpenEnded {
		t.Error("schedule should not be open-ended")
	}
	if got := s.StartDate.Format("2006-01-02"); got != "2026-10-01" {
		t.Errorf("start date = %s", got)
	}
	if got := s.EndDate.Format("2006-01-02"); got != "2026-10-15" {
		t.Errorf("end date = %s", got)
	}
	if s.StartTime != "09:00" {
		t.Errorf("start time = %q, want 09:00", s.StartTime)
	}
	if s.Recurrence != models.RecurrenceBiweekly {
		t.Errorf("recurrence = %q, want biweekly", s.Recurrence)
	}
	if len(opp.Locations) != 1 {
		t.Fatalf("expected one location, got %d", len(opp.Locations))
	}
	loc := opp.Locations[0]
	if loc.Virtual || loc.Street1 != "123 Shoreline Dr" || loc.City != "Santa Cruz" || loc.Region != "CA" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestExtractOpenEndedDropsDates(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Title", Value: "Food Bank Sorting"},
		{Name: "Ongoing?", Value: "yes"},
		{Name: "Start Date", Value: "2026-03-01"},
		{Name: "End Date", Value: "2026-04-01"},
	})

	opp, _, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(opp.Schedules) != 1 {
		t.Fatalf("expected one schedule, got %d", len(opp.Schedules))
	}
	s := opp.Schedules[0]
	if !s.OpenEnded {
		t.Error("schedule should be open-ended")
	}
	if !s.StartDate.IsZero() || !s.EndDate.IsZero() {
		t.Errorf("open-ended schedule must carry no dates, got %+v", s)
	}
	if s.Signature() != "openended" {
		t.Errorf("signature = %q", s.Signature())
	}
}

func TestExtractVirtualWinsOverAddress(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Title", Value: "Remote Tutoring"},
		{Name: "Remote", Value: "yes"},
		{Name: "City", Value: "Fresno"},
	})

	opp, warnings, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(opp.Locations) != 1 || !opp.Locations[0].Virtual {
		t.Fatalf("expected a single virtual location, got %+v", opp.Locations)
	}
	if opp.Locations[0].City != "" {
		t.Error("virtual location must not keep address fields")
	}
	found := false
	for _, w := range warnings {
		if w.Kind == WarnVirtualMixed {
			found = true
		}
	}
	if !found {
		t.Errorf("expected WarnVirtualMixed, got %v", warnings)
	}
}

func TestExtractDegradesBadValues(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Title", Value: "Park Patrol"},
		{Name: "Start Date", Value: "whenever works"},
		{Name: "Start Time", Value: "early-ish"},
		{Name: "Minimum Age", Value: "adults only"},
		{Name: "How often", Value: "when the mood strikes"},
		{Name: "Remote", Value: "maybe"},
	})

	opp, warnings, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	wantKinds := map[WarningKind]bool{
		WarnBadDate:      false,
		WarnBadTime:      false,
		WarnBadNumber:    false,
		WarnBadFrequency: false,
		WarnUnknownBool:  false,
	}
	for _, w := range warnings {
		wantKinds[w.Kind] = true
	}
	for kind, seen := range wantKinds {
		if !seen {
			t.Errorf("expected a %s warning, warnings = %v", kind, warnings)
		}
	}
	if opp.MinimumAge != 0 {
		t.Errorf("bad age should degrade to 0, got %d", opp.MinimumAge)
	}
	if len(opp.Schedules) != 1 || opp.Schedules[0].Recurrence != models.RecurrenceNone {
		t.Errorf("bad frequency should degrade to none, got %+v", opp.Schedules)
	}
}

func TestExtractNoScheduleNoLocation(t *testing.T) {
	raw := NewRawRecord([]RawField{
		{Name: "Title", Value: "Mystery Event"},
	})
	opp, warnings, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(opp.Schedules) != 0 || len(opp.Locations) != 0 {
		t.Errorf("record with only a title should yield no schedule or location, got %+v", opp)
	}
}

func TestParseTriState(t *testing.T) {
	tests := []struct {
		in       string
		want     TriState
		warnKind WarningKind
	}{
		{"", TriUnknown, ""},
		{"yes", TriTrue, ""},
		{"Y", TriTrue, ""},
		{"TRUE", TriTrue, ""},
		{"1", TriTrue, ""},
		{"no", TriFalse, ""},
		{"n", TriFalse, ""},
		{"0", TriFalse, ""},
		{"  yes  ", TriTrue, ""},
		{"probably", TriUnknown, WarnUnknownBool},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, w := parseTriState(tt.in, "virtual")
			if got != tt.want {
				t.Errorf("parseTriState(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if tt.warnKind == "" && w != nil {
				t.Errorf("unexpected warning %v", w)
			}
			if tt.warnKind != "" && (w == nil || w.Kind != tt.warnKind) {
				t.Errorf("expected %s warning, got %v", tt.warnKind, w)
			}
		})
	}
}

func TestMapFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want models.Recurrence
		ok   bool
	}{
		{"Weekly", models.RecurrenceWeekly, true},
		{"meets weekly on Tuesdays", models.RecurrenceWeekly, true},
		{"Biweekly", models.RecurrenceBiweekly, true},
		{"bi-weekly", models.RecurrenceBiweekly, true},
		{"every other week", models.RecurrenceBiweekly, true},
		{"Daily", models.RecurrenceDaily, true},
		{"Monthly", models.RecurrenceMonthly, true},
		{"one-time event", models.RecurrenceNone, true},
		{"whenever", models.RecurrenceNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := mapFrequency(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("mapFrequency(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"18", 18},
		{"18+ years", 18},
		{"  21 and over", 21},
		{"0", 0},
		{"none", 0},
		{"+5", 0},
	}
	for _, tt := range tests {
		if got := parseLeadingInt(tt.in); got != tt.want {
			t.Errorf("parseLeadingInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
