package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// BreachPolicy decides how an incident with an unknown breach flag is counted.
type BreachPolicy string

const (
	UnknownAsCompliant BreachPolicy = "compliant"
	UnknownAsBreached  BreachPolicy = "breached"
)

// PriorityEstimate is one row of the resolution-time fallback table.
type PriorityEstimate struct {
	Labels []string `yaml:"labels"`
	Hours  float64  `yaml:"hours"`
}

// Policy holds the organization-specific rules the analyzers apply.
type Policy struct {
	ResolvedStatuses     domain.Vocabulary
	IncidentTypes        domain.Vocabulary
	HardwareKeywords     []string
	UnknownBreach        BreachPolicy
	PriorityEstimates    []PriorityEstimate
	DefaultEstimateHours float64
	OutlierCeiling       time.Duration
	FastThreshold        time.Duration
	SlowThreshold        time.Duration
	HighRating           float64
	LowRating            float64
	TopCategories        int
	TopRequesters        int
}

// DefaultPolicy returns the rules used by the helpdesk dashboard.
func DefaultPolicy() Policy {
	return Policy{
		ResolvedStatuses: domain.Vocabulary{"Resolved", "Closed", "Solved", "Resueltas", "Resuelto", "Resuelta", "Cerrado", "Cerrada"},
		IncidentTypes:    domain.Vocabulary{"Incident", "Incidencia", "Incidente"},
		HardwareKeywords: []string{"Impresora", "Computador", "Equipo", "Hardware", "PC", "Monitor", "Servidor", "Router", "Switch"},
		UnknownBreach:    UnknownAsCompliant,
		PriorityEstimates: []PriorityEstimate{
			{Labels: []string{"Muy alta", "Alta", "Urgente", "Crítica", "Critica", "Very high", "High", "Urgent", "Critical"}, Hours: 8},
			{Labels: []string{"Mediana", "Media", "Medium", "Normal"}, Hours: 24},
			{Labels: []string{"Baja", "Muy baja", "Low", "Very low"}, Hours: 48},
		},
		DefaultEstimateHours: 24,
		OutlierCeiling:       30 * 24 * time.Hour,
		FastThreshold:        24 * time.Hour,
		SlowThreshold:        72 * time.Hour,
		HighRating:           4,
		LowRating:            2,
		TopCategories:        10,
		TopRequesters:        5,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if len(p.ResolvedStatuses) == 0 {
		p.ResolvedStatuses = def.ResolvedStatuses
	}
	if len(p.IncidentTypes) == 0 {
		p.IncidentTypes = def.IncidentTypes
	}
	if p.HardwareKeywords == nil {
		p.HardwareKeywords = def.HardwareKeywords
	}
	if p.UnknownBreach != UnknownAsBreached {
		p.UnknownBreach = UnknownAsCompliant
	}
	if p.PriorityEstimates == nil {
		p.PriorityEstimates = def.PriorityEstimates
	}
	if p.DefaultEstimateHours <= 0 {
		p.DefaultEstimateHours = def.DefaultEstimateHours
	}
	if p.OutlierCeiling <= 0 {
		p.OutlierCeiling = def.OutlierCeiling
	}
	if p.FastThreshold <= 0 {
		p.FastThreshold = def.FastThreshold
	}
	if p.SlowThreshold <= 0 {
		p.SlowThreshold = def.SlowThreshold
	}
	if p.HighRating <= 0 {
		p.HighRating = def.HighRating
	}
	if p.LowRating <= 0 {
		p.LowRating = def.LowRating
	}
	if p.TopCategories <= 0 {
		p.TopCategories = def.TopCategories
	}
	if p.TopRequesters <= 0 {
		p.TopRequesters = def.TopRequesters
	}
	return p
}

// Engine computes every KPI view over a record set. It holds no state besides its policy,
// so one Engine may serve concurrent callers.
type Engine struct {
	policy Policy
}

// NewEngine builds an engine; zero-valued policy fields fall back to defaults.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy.withDefaults()}
}

// Policy returns the effective policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) isResolved(t domain.Ticket) bool {
	return e.policy.ResolvedStatuses.Contains(t.Status)
}

func (e *Engine) isIncident(t domain.Ticket) bool {
	return e.policy.IncidentTypes.Contains(t.Type)
}

func (e *Engine) isBreached(t domain.Ticket) bool {
	switch t.SLABreached {
	case domain.SLABreached:
		return true
	case domain.SLAUnknown:
		return e.policy.UnknownBreach == UnknownAsBreached
	default:
		return false
	}
}

// measuredHours returns the elapsed hours of a ticket when both timestamps are known and the
// duration is plausible.
func (e *Engine) measuredHours(t domain.Ticket) (float64, bool) {
	d, ok := t.Duration()
	if !ok || d < 0 || d > e.policy.OutlierCeiling {
		return 0, false
	}
	return d.Hours(), true
}

func (e *Engine) estimatedHours(t domain.Ticket) float64 {
	for _, estimate := range e.policy.PriorityEstimates {
		if domain.Vocabulary(estimate.Labels).Contains(t.Priority) {
			return estimate.Hours
		}
	}
	return e.policy.DefaultEstimateHours
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round(float64(part)/float64(whole)*100, 1)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Entry pairs a technician with one of their stats for leaderboard output.
type Entry[T any] struct {
	Technician string `json:"technician"`
	Stats      T      `json:"stats"`
}

func rank[T any](m map[string]T, compare func(a, b T) int) []Entry[T] {
	out := make([]Entry[T], 0, len(m))
	for name, stats := range m {
		out = append(out, Entry[T]{Technician: name, Stats: stats})
	}
	slices.SortFunc(out, func(a, b Entry[T]) int {
		if c := compare(a.Stats, b.Stats); c != 0 {
			return c
		}
		return strings.Compare(a.Technician, b.Technician)
	})
	return out
}

// Count is one labelled tally in a top-N list.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func topCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
