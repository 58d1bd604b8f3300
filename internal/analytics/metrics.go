package analytics

import "github.com/spec-kit/ticket-analytics/internal/domain"

// OverallMetrics are the headline dashboard KPIs.
type OverallMetrics struct {
	Total              int     `json:"total"`
	Resolved           int     `json:"resolved"`
	ResolutionRate     float64 `json:"resolution_rate"`
	Backlog            int     `json:"backlog"`
	SLACompliance      float64 `json:"sla_compliance"`
	CSATPercentage     float64 `json:"csat_percentage"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// Overall computes totals and rates. SLA compliance is taken over incidents only.
func (e *Engine) Overall(rs *domain.RecordSet) OverallMetrics {
	m := OverallMetrics{Total: rs.Len()}
	var hours []float64
	for _, t := range rs.All() {
		if !e.isResolved(t) {
			continue
		}
		m.Resolved++
		if h, ok := e.measuredHours(t); ok {
			hours = append(hours, h)
		}
	}
	m.Backlog = m.Total - m.Resolved
	m.ResolutionRate = percent(m.Resolved, m.Total)
	m.SLACompliance = e.SLA(rs).ComplianceRate
	m.CSATPercentage = e.CSAT(rs).Percentage
	m.AvgResolutionHours = round(mean(hours), 1)
	return m
}
