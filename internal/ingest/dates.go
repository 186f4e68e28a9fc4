package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// parseDateRobust attempts to parse feed date strings in the formats the
// provider corpus actually ships: ISO, US slash dates, and month-name forms.
func parseDateRobust(text string) (time.Time, error) {
	text = cleanDateString(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// ISO first (most reliable)
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), nil
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006",
		"1/2/2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}

	if t := parseDateWithRegex(text); !t.IsZero() {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", text)
}

// parseDateWithRegex extracts a date embedded in surrounding text.
func parseDateWithRegex(text string) time.Time {
	isoRegex := regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	if matches := isoRegex.FindStringSubmatch(text); len(matches) == 4 {
		if t, err := time.Parse("2006-01-02", matches[0]); err == nil {
			return t
		}
	}

	usRegex := regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	if matches := usRegex.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s/%s/%s", matches[1], matches[2], matches[3])
		if t, err := time.Parse("1/2/2006", dateStr); err == nil {
			return t
		}
	}

	monthRegex := regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2}),?\s+(20\d{2})\b`)
	if matches := monthRegex.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s %s %s", matches[1], matches[2], matches[3])
		for _, format := range []string{"January 2, 2006", "Jan 2, 2006", "January 2 2006", "Jan 2 2006"} {
			if t, err := time.Parse(format, dateStr); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}

// parseClockTime normalizes "9am", "9:30 AM", "14:00" to "15:04" form.
// Returns "" when the value isn't a recognizable clock time.
func parseClockTime(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "a.m.", "AM")
	text = strings.ReplaceAll(text, "p.m.", "PM")
	upper := strings.ToUpper(text)

	formats := []string{
		"15:04",
		"15:04:05",
		"3:04 PM",
		"3:04PM",
		"3 PM",
		"3PM",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, upper); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

// cleanDateString removes labels the feeds prepend to date values. Matching
// is case-insensitive over ASCII only; asciiLower preserves byte length, so
// indexes into the lowered copy stay valid for slicing the original.
func cleanDateString(s string) string {
	prefixes := []string{
		"start date:", "end date:", "starts:", "ends:",
		"date:", "from:", "through:", "until:",
	}
	lower := asciiLower(s)
	for _, p := range prefixes {
		if idx := strings.Index(lower, p); idx != -1 {
			s = s[idx+len(p):]
			lower = lower[idx+len(p):]
		}
	}
	return strings.TrimSpace(s)
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
