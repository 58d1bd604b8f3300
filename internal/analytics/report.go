package analytics

import "github.com/spec-kit/ticket-analytics/internal/domain"

// Report bundles every view computed from one record set.
type Report struct {
	Source          string              `json:"source"`
	Encoding        string              `json:"encoding"`
	Overall         OverallMetrics      `json:"overall"`
	Distribution    Distribution        `json:"distribution"`
	SLA             SLAAnalysis         `json:"sla"`
	CSAT            CSATAnalysis        `json:"csat"`
	Workload        Workload            `json:"workload"`
	TechnicianSLA   TechnicianSLAStats  `json:"technician_sla"`
	TechnicianCSAT  TechnicianCSATStats `json:"technician_csat"`
	ResolutionTimes ResolutionTimeStats `json:"resolution_times"`
	Findings        map[string]Finding  `json:"findings"`
	Warnings        []string            `json:"warnings"`
}

// Report runs every analyzer over rs.
func (e *Engine) Report(rs *domain.RecordSet) Report {
	warnings := rs.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	return Report{
		Source:          rs.Source(),
		Encoding:        rs.Encoding(),
		Overall:         e.Overall(rs),
		Distribution:    e.Distribution(rs),
		SLA:             e.SLA(rs),
		CSAT:            e.CSAT(rs),
		Workload:        e.Workload(rs),
		TechnicianSLA:   e.TechnicianSLA(rs),
		TechnicianCSAT:  e.TechnicianCSAT(rs),
		ResolutionTimes: e.ResolutionTimes(rs),
		Findings:        e.Validate(rs),
		Warnings:        warnings,
	}
}
