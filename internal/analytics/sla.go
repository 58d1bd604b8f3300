package analytics

import "github.com/spec-kit/ticket-analytics/internal/domain"

// TierStats is the compliance of one SLA tier.
type TierStats struct {
	Total          int     `json:"total"`
	WithinSLA      int     `json:"within_sla"`
	Breached       int     `json:"breached"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// SLAAnalysis is incident SLA compliance overall and per tier.
type SLAAnalysis struct {
	TotalIncidents int                  `json:"total_incidents"`
	Breached       int                  `json:"breached"`
	ComplianceRate float64              `json:"compliance_rate"`
	ByTier         map[string]TierStats `json:"by_tier"`
}

// SLA analyzes incident-type tickets. Tiers are whatever non-empty values appear in the data;
// incidents without a tier count toward the aggregate only.
func (e *Engine) SLA(rs *domain.RecordSet) SLAAnalysis {
	out := SLAAnalysis{ByTier: map[string]TierStats{}}
	for _, t := range rs.All() {
		if !e.isIncident(t) {
			continue
		}
		breached := e.isBreached(t)
		out.TotalIncidents++
		if breached {
			out.Breached++
		}
		if t.SLATier == "" {
			continue
		}
		tier := out.ByTier[t.SLATier]
		tier.Total++
		if breached {
			tier.Breached++
		} else {
			tier.WithinSLA++
		}
		out.ByTier[t.SLATier] = tier
	}
	out.ComplianceRate = percent(out.TotalIncidents-out.Breached, out.TotalIncidents)
	for name, tier := range out.ByTier {
		tier.ComplianceRate = percent(tier.WithinSLA, tier.Total)
		out.ByTier[name] = tier
	}
	return out
}
