package dto

import (
	"time"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
)

// ReportMeta identifies the analysis a view was taken from.
type ReportMeta struct {
	Source      string    `json:"source"`
	Encoding    string    `json:"encoding"`
	Checksum    string    `json:"checksum"`
	Cached      bool      `json:"cached"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TechnicianBoards groups every per-technician leaderboard.
type TechnicianBoards struct {
	Workload   []analytics.Count                            `json:"workload"`
	SLA        []analytics.Entry[analytics.TechnicianSLA]   `json:"sla"`
	CSAT       []analytics.Entry[analytics.TechnicianCSAT]  `json:"csat"`
	Resolution []analytics.Entry[analytics.ResolutionStats] `json:"resolution"`
}

// ListQuery captures paging for history endpoints.
type ListQuery struct {
	Limit int `query:"limit"`
}

// NarrativeQuery bounds the sample size of the narrative context.
type NarrativeQuery struct {
	Rows int `query:"rows"`
}
