package ingest

import (
	"regexp"
	"strings"
	"time"
)

// Record is the two-method capability the tagger needs from a canonical
// record. Struct-backed and DOM-backed adapters both satisfy it (record.go).
type Record interface {
	GetVal(field string) string
	AddTag(tag string)
}

// FeedContext carries the per-feed facts rules may consult.
type FeedContext struct {
	ProviderID string
}

// Rule scores one record in [0,1]. Rules are pure: no side effects, no
// ordering dependence between rules of the same tag.
type Rule interface {
	Score(r Record, fc FeedContext) float64
}

// TagDef is one tag with its rule set. The tag applies iff the unweighted
// mean of its rule scores strictly exceeds Threshold. A threshold of 0.0
// means "any match applies the tag".
type TagDef struct {
	Name      string
	Threshold float64
	Rules     []Rule
}

// Tagger evaluates tag definitions against records. Evaluation order is the
// definition order; tagging only appends, so re-running over a record that
// wasn't reset will append duplicates — resetting is the caller's job.
type Tagger struct {
	defs []TagDef
}

func NewTagger(defs []TagDef) *Tagger {
	return &Tagger{defs: defs}
}

// Tag applies matching tags via r.AddTag and returns the applied names in
// evaluation order.
func (t *Tagger) Tag(r Record, fc FeedContext) []string {
	var applied []string
	for _, def := range t.defs {
		if len(def.Rules) == 0 {
			continue
		}
		total := 0.0
		for _, rule := range def.Rules {
			total += clampScore(rule.Score(r, fc))
		}
		mean := total / float64(len(def.Rules))
		if mean > def.Threshold {
			r.AddTag(def.Name)
			applied = append(applied, def.Name)
		}
	}
	return applied
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// RegexRule matches a case-insensitive pattern against the record's title
// and description.
type RegexRule struct {
	Pattern *regexp.Regexp
	Value   float64 // score when matched, default 1
}

func (r RegexRule) Score(rec Record, _ FeedContext) float64 {
	text := rec.GetVal(FieldTitle) + "\n" + rec.GetVal(FieldDescription)
	if r.Pattern != nil && r.Pattern.MatchString(text) {
		if r.Value > 0 {
			return r.Value
		}
		return 1
	}
	return 0
}

// KeywordRule matches whitespace-bounded keywords against title and
// description. A '+' inside a keyword token joins a multi-word phrase
// ("beach+cleanup" matches "beach cleanup"). Matches accumulate PerMatch
// per keyword, capped at 1; substrings inside larger words don't count.
type KeywordRule struct {
	Keywords []string
	PerMatch float64 // score contributed per matched keyword, default 1
}

func (r KeywordRule) Score(rec Record, _ FeedContext) float64 {
	text := strings.ToLower(rec.GetVal(FieldTitle) + " " + rec.GetVal(FieldDescription))
	per := r.PerMatch
	if per <= 0 {
		per = 1
	}
	total := 0.0
	for _, kw := range r.Keywords {
		phrase := strings.ToLower(strings.ReplaceAll(kw, "+", " "))
		if containsBoundedPhrase(text, phrase) {
			total += per
		}
	}
	return clampScore(total)
}

// containsBoundedPhrase reports whether phrase occurs in text with
// whitespace (or string start/end) on both sides.
func containsBoundedPhrase(text, phrase string) bool {
	phrase = cleanText(phrase)
	if phrase == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)
		beforeOK := idx == 0 || isSpace(text[idx-1])
		afterOK := end == len(text) || isSpace(text[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ProviderRule scores 1 when the feed's provider ID is in the allowlist.
type ProviderRule struct {
	Allowed []string
}

func (r ProviderRule) Score(_ Record, fc FeedContext) float64 {
	for _, p := range r.Allowed {
		if strings.EqualFold(p, fc.ProviderID) {
			return 1
		}
	}
	return 0
}

// DateRangeRule scores 1 when the record's start date falls inside
// [From, To]. A missing or unparseable start date scores 0.
type DateRangeRule struct {
	From time.Time
	To   time.Time
}

func (r DateRangeRule) Score(rec Record, _ FeedContext) float64 {
	raw := rec.GetVal(FieldStartDate)
	t, err := parseDateRobust(raw)
	if err != nil {
		return 0
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return 0
	}
	if !r.To.IsZero() && t.After(r.To) {
		return 0
	}
	return 1
}
