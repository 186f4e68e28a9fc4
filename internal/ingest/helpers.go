package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// normalizeSpace collapses runs of whitespace into one space and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanText normalizes whitespace (alias for normalizeSpace)
func cleanText(s string) string {
	return normalizeSpace(s)
}

// TruncateText cuts a string to max length, appending ellipsis if truncated.
// The cut backs up to a rune boundary so the result stays valid UTF-8.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	ellipsis := ""
	if maxLen > 3 {
		cut = maxLen - 3
		ellipsis = "..."
	}
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + ellipsis
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cleanText(html) // fall back to the original if parsing fails
	}
	return cleanText(doc.Text())
}

// sanitizeHTML strips unsafe tags and attributes from feed-provided HTML.
func sanitizeHTML(s string) string {
	p := bluemonday.UGCPolicy()
	return p.Sanitize(s)
}

// sanitizeUTF8 removes invalid UTF-8 byte sequences that upset Postgres.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// stripDigits removes every ASCII digit. Stable-ID address hashing uses this
// so street numbers and postal codes don't split near-duplicate listings.
func stripDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// appendTagUnique appends a tag unless an equal-fold copy is already present.
func appendTagUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}

// parseLeadingInt reads leading digits off a string ("18+ years" -> 18).
// Returns 0 when the string doesn't start with a digit.
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	seen := false
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		seen = true
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			break
		}
	}
	if !seen {
		return 0
	}
	return n
}
