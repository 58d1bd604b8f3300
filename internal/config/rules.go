package config

import (
	"fmt"
	"os"
	"slices"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
)

// Rules overrides the data-driven tables used by ingestion and analysis.
// Omitted keys keep the built-in defaults.
type Rules struct {
	Encodings            []string                     `yaml:"encodings"`
	Delimiter            string                       `yaml:"delimiter"`
	Timezone             string                       `yaml:"timezone"`
	Aliases              map[string][]string          `yaml:"aliases"`
	NullLiterals         []string                     `yaml:"null_literals"`
	UnassignedLiterals   []string                     `yaml:"unassigned_literals"`
	DateLayouts          []string                     `yaml:"date_layouts"`
	BreachYes            []string                     `yaml:"breach_yes"`
	BreachNo             []string                     `yaml:"breach_no"`
	ResolvedStatuses     []string                     `yaml:"resolved_statuses"`
	IncidentTypes        []string                     `yaml:"incident_types"`
	HardwareKeywords     []string                     `yaml:"hardware_keywords"`
	PriorityEstimates    []analytics.PriorityEstimate `yaml:"priority_estimates"`
	DefaultEstimateHours float64                      `yaml:"default_estimate_hours"`
	OutlierCeilingHours  float64                      `yaml:"outlier_ceiling_hours"`
}

// LoadRules parses a YAML rules file. An empty path yields empty rules.
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if path == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rules.validate(); err != nil {
		return rules, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

func (r Rules) validate() error {
	if r.Delimiter != "" && utf8.RuneCountInString(r.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", r.Delimiter)
	}
	for _, name := range r.Encodings {
		if _, ok := ingest.CanonicalEncoding(name); !ok {
			return fmt.Errorf("unsupported encoding %q", name)
		}
	}
	for field := range r.Aliases {
		if !isCanonicalField(field) {
			return fmt.Errorf("unknown field %q in aliases", field)
		}
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	return nil
}

// IngestOptions layers the rules over the ingestion defaults. Aliases replace the default
// list per field, leaving other fields untouched.
func (r Rules) IngestOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	if len(r.Encodings) > 0 {
		opts.Encodings = r.Encodings
	}
	if r.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(r.Delimiter)
		opts.Delimiter = d
	}
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			opts.Location = loc
		}
	}
	for field, labels := range r.Aliases {
		opts.Aliases[field] = labels
	}
	if r.NullLiterals != nil {
		opts.NullLiterals = r.NullLiterals
	}
	if r.UnassignedLiterals != nil {
		opts.UnassignedLiterals = r.UnassignedLiterals
	}
	if len(r.DateLayouts) > 0 {
		opts.DateLayouts = r.DateLayouts
	}
	if len(r.BreachYes) > 0 {
		opts.BreachYes = r.BreachYes
	}
	if len(r.BreachNo) > 0 {
		opts.BreachNo = r.BreachNo
	}
	return opts
}

// Policy layers the rules and the unknown-breach setting over the analysis defaults.
func (r Rules) Policy(unknownBreach string) analytics.Policy {
	policy := analytics.DefaultPolicy()
	policy.UnknownBreach = analytics.BreachPolicy(unknownBreach)
	if len(r.ResolvedStatuses) > 0 {
		policy.ResolvedStatuses = domain.Vocabulary(r.ResolvedStatuses)
	}
	if len(r.IncidentTypes) > 0 {
		policy.IncidentTypes = domain.Vocabulary(r.IncidentTypes)
	}
	if r.HardwareKeywords != nil {
		policy.HardwareKeywords = r.HardwareKeywords
	}
	if len(r.PriorityEstimates) > 0 {
		policy.PriorityEstimates = r.PriorityEstimates
	}
	if r.DefaultEstimateHours > 0 {
		policy.DefaultEstimateHours = r.DefaultEstimateHours
	}
	if r.OutlierCeilingHours > 0 {
		policy.OutlierCeiling = time.Duration(r.OutlierCeilingHours * float64(time.Hour))
	}
	return policy
}

func isCanonicalField(field string) bool {
	return slices.Contains(domain.CanonicalFields, field)
}
