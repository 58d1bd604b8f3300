package analytics

import (
	"cmp"
	"slices"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// Resolution-time methods.
const (
	MethodMeasured  = "measured"
	MethodEstimated = "estimated"
)

// Workload counts tickets per technician, including the unassigned bucket.
type Workload map[string]int

// Ranked orders technicians by ticket count, busiest first.
func (w Workload) Ranked() []Count {
	return topCounts(w, 0)
}

// TechnicianSLA is one technician's incident SLA record.
type TechnicianSLA struct {
	TotalIncidents int     `json:"total_incidents"`
	Compliant      int     `json:"compliant"`
	Breached       int     `json:"breached"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// TechnicianSLAStats maps technician to SLA record.
type TechnicianSLAStats map[string]TechnicianSLA

// Ranked orders by compliance rate, best first.
func (s TechnicianSLAStats) Ranked() []Entry[TechnicianSLA] {
	return rank(s, func(a, b TechnicianSLA) int {
		if c := cmp.Compare(b.ComplianceRate, a.ComplianceRate); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalIncidents, a.TotalIncidents)
	})
}

// TechnicianCSAT is one technician's satisfaction record.
type TechnicianCSAT struct {
	TotalResponses int     `json:"total_responses"`
	Average        float64 `json:"average"`
	HighRatings    int     `json:"high_ratings"`
	LowRatings     int     `json:"low_ratings"`
}

// TechnicianCSATStats maps technician to satisfaction record.
type TechnicianCSATStats map[string]TechnicianCSAT

// Ranked orders by average rating, best first.
func (s TechnicianCSATStats) Ranked() []Entry[TechnicianCSAT] {
	return rank(s, func(a, b TechnicianCSAT) int {
		if c := cmp.Compare(b.Average, a.Average); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalResponses, a.TotalResponses)
	})
}

// ResolutionStats describes how long a technician takes to resolve tickets.
// Method is "estimated" when no ticket had usable timestamps; such figures are advisory.
type ResolutionStats struct {
	TotalResolved int     `json:"total_resolved"`
	AvgHours      float64 `json:"avg_hours"`
	MinHours      float64 `json:"min_hours"`
	MaxHours      float64 `json:"max_hours"`
	Fast          int     `json:"fast"`
	Slow          int     `json:"slow"`
	Method        string  `json:"method"`
}

// ResolutionTimeStats maps technician to resolution statistics.
type ResolutionTimeStats map[string]ResolutionStats

// Ranked orders by average hours, fastest first.
func (s ResolutionTimeStats) Ranked() []Entry[ResolutionStats] {
	return rank(s, func(a, b ResolutionStats) int {
		return cmp.Compare(a.AvgHours, b.AvgHours)
	})
}

// Workload counts every ticket under its technician or the unassigned bucket.
func (e *Engine) Workload(rs *domain.RecordSet) Workload {
	out := Workload{}
	for _, t := range rs.All() {
		out[t.Technician]++
	}
	return out
}

// TechnicianSLA attributes incident SLA results to assigned technicians.
func (e *Engine) TechnicianSLA(rs *domain.RecordSet) TechnicianSLAStats {
	out := TechnicianSLAStats{}
	for _, t := range rs.All() {
		if t.IsUnassigned() || !e.isIncident(t) {
			continue
		}
		stats := out[t.Technician]
		stats.TotalIncidents++
		if e.isBreached(t) {
			stats.Breached++
		} else {
			stats.Compliant++
		}
		out[t.Technician] = stats
	}
	for name, stats := range out {
		stats.ComplianceRate = percent(stats.Compliant, stats.TotalIncidents)
		out[name] = stats
	}
	return out
}

// TechnicianCSAT aggregates valid ratings per assigned technician.
func (e *Engine) TechnicianCSAT(rs *domain.RecordSet) TechnicianCSATStats {
	ratings := map[string][]float64{}
	for _, t := range rs.All() {
		if t.IsUnassigned() || !t.HasRating() {
			continue
		}
		ratings[t.Technician] = append(ratings[t.Technician], t.Satisfaction)
	}
	out := TechnicianCSATStats{}
	for name, values := range ratings {
		stats := TechnicianCSAT{TotalResponses: len(values), Average: round(mean(values), 2)}
		for _, v := range values {
			if v >= e.policy.HighRating {
				stats.HighRatings++
			}
			if v <= e.policy.LowRating {
				stats.LowRatings++
			}
		}
		out[name] = stats
	}
	return out
}

// ResolutionTimes computes per-technician resolution durations over resolved tickets.
// Durations outside [0, OutlierCeiling] are discarded. A technician left with no measured
// duration falls back to the priority-weighted estimate table.
func (e *Engine) ResolutionTimes(rs *domain.RecordSet) ResolutionTimeStats {
	resolved := map[string][]domain.Ticket{}
	for _, t := range rs.All() {
		if t.IsUnassigned() || !e.isResolved(t) {
			continue
		}
		resolved[t.Technician] = append(resolved[t.Technician], t)
	}

	out := ResolutionTimeStats{}
	for name, tickets := range resolved {
		var hours []float64
		for _, t := range tickets {
			if h, ok := e.measuredHours(t); ok {
				hours = append(hours, h)
			}
		}
		method := MethodMeasured
		if len(hours) == 0 {
			method = MethodEstimated
			for _, t := range tickets {
				hours = append(hours, e.estimatedHours(t))
			}
		}
		out[name] = e.resolutionStats(len(tickets), hours, method)
	}
	return out
}

func (e *Engine) resolutionStats(total int, hours []float64, method string) ResolutionStats {
	stats := ResolutionStats{
		TotalResolved: total,
		AvgHours:      round(mean(hours), 1),
		MinHours:      round(slices.Min(hours), 1),
		MaxHours:      round(slices.Max(hours), 1),
		Method:        method,
	}
	fast := e.policy.FastThreshold.Hours()
	slow := e.policy.SlowThreshold.Hours()
	for _, h := range hours {
		if h <= fast {
			stats.Fast++
		}
		if h > slow {
			stats.Slow++
		}
	}
	return stats
}
