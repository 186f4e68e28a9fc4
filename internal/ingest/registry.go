package ingest

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/providers.yaml
var providersYAML embed.FS

// Registry holds the configuration for all feed providers and tag rules.
type Registry struct {
	Providers []ProviderConfig `yaml:"providers"`
	Tags      []TagConfig      `yaml:"tags"`
}

// FetchConfig defines HTTP fetching configuration for a provider.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
}

// ProviderConfig defines a single volunteer-opportunity feed.
type ProviderConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Format      string   `yaml:"format"` // "spreadsheet", "xml", "crawl"
	URL         string   `yaml:"url,omitempty"`
	Seeds       []string `yaml:"seed_urls,omitempty"`
	Active      bool     `yaml:"active"`
	Description string   `yaml:"description,omitempty"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`
}

// TagConfig is the YAML shape of one tag definition.
type TagConfig struct {
	Name      string          `yaml:"name"`
	Threshold float64         `yaml:"threshold"`
	Rules     []TagRuleConfig `yaml:"rules"`
}

// TagRuleConfig is one rule inside a tag definition. Kind selects which
// fields matter.
type TagRuleConfig struct {
	Kind      string   `yaml:"kind"` // "keyword", "regex", "provider", "daterange"
	Keywords  []string `yaml:"keywords,omitempty"`
	Score     float64  `yaml:"score,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Providers []string `yaml:"providers,omitempty"`
	From      string   `yaml:"from,omitempty"` // "2006-01-02"
	To        string   `yaml:"to,omitempty"`
}

// LoadRegistry reads the embedded providers.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := providersYAML.ReadFile("config/providers.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${FEED_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Provider returns the config for a provider ID.
func (r *Registry) Provider(id string) (*ProviderConfig, error) {
	for i := range r.Providers {
		if r.Providers[i].ID == id {
			return &r.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("provider %q not found in registry", id)
}

// BuildTagDefs compiles the registry's tag configs into executable rules.
func (r *Registry) BuildTagDefs() ([]TagDef, error) {
	defs := make([]TagDef, 0, len(r.Tags))
	for _, tc := range r.Tags {
		def := TagDef{Name: tc.Name, Threshold: tc.Threshold}
		for _, rc := range tc.Rules {
			rule, err := buildRule(rc)
			if err != nil {
				return nil, fmt.Errorf("tag %q: %w", tc.Name, err)
			}
			def.Rules = append(def.Rules, rule)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func buildRule(rc TagRuleConfig) (Rule, error) {
	switch rc.Kind {
	case "keyword":
		if len(rc.Keywords) == 0 {
			return nil, fmt.Errorf("keyword rule has no keywords")
		}
		return KeywordRule{Keywords: rc.Keywords, PerMatch: rc.Score}, nil
	case "regex":
		re, err := regexp.Compile("(?i)" + rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", rc.Pattern, err)
		}
		return RegexRule{Pattern: re, Value: rc.Score}, nil
	case "provider":
		if len(rc.Providers) == 0 {
			return nil, fmt.Errorf("provider rule has no providers")
		}
		return ProviderRule{Allowed: rc.Providers}, nil
	case "daterange":
		var from, to time.Time
		var err error
		if rc.From != "" {
			if from, err = time.Parse("2006-01-02", rc.From); err != nil {
				return nil, fmt.Errorf("bad from date %q: %w", rc.From, err)
			}
		}
		if rc.To != "" {
			if to, err = time.Parse("2006-01-02", rc.To); err != nil {
				return nil, fmt.Errorf("bad to date %q: %w", rc.To, err)
			}
		}
		return DateRangeRule{From: from, To: to}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rc.Kind)
	}
}
