package service

import (
	"github.com/spec-kit/ticket-analytics/internal/analytics"
)

// Settings is the effective configuration reported to dashboard clients.
type Settings struct {
	SourcePath           string                       `json:"source_path"`
	Encodings            []string                     `json:"encodings"`
	PreferredEncoding    string                       `json:"preferred_encoding,omitempty"`
	Delimiter            string                       `json:"delimiter"`
	ResolvedStatuses     []string                     `json:"resolved_statuses"`
	IncidentTypes        []string                     `json:"incident_types"`
	HardwareKeywords     []string                     `json:"hardware_keywords"`
	UnknownBreach        analytics.BreachPolicy       `json:"unknown_breach"`
	PriorityEstimates    []analytics.PriorityEstimate `json:"priority_estimates"`
	DefaultEstimateHours float64                      `json:"default_estimate_hours"`
	OutlierCeilingHours  float64                      `json:"outlier_ceiling_hours"`
	FastHours            float64                      `json:"fast_hours"`
	SlowHours            float64                      `json:"slow_hours"`
	MaxUploadBytes       int64                        `json:"max_upload_bytes"`
	CacheTTLSeconds      int                          `json:"cache_ttl_seconds"`
}

// Settings reports the rules currently applied by ingestion and analysis.
func (s *AnalyticsService) Settings() Settings {
	opts := s.normalizer.Options()
	policy := s.engine.Policy()
	return Settings{
		SourcePath:           s.store.Path(),
		Encodings:            opts.Encodings,
		PreferredEncoding:    s.cfg.PreferredEncoding,
		Delimiter:            string(opts.Delimiter),
		ResolvedStatuses:     policy.ResolvedStatuses,
		IncidentTypes:        policy.IncidentTypes,
		HardwareKeywords:     policy.HardwareKeywords,
		UnknownBreach:        policy.UnknownBreach,
		PriorityEstimates:    policy.PriorityEstimates,
		DefaultEstimateHours: policy.DefaultEstimateHours,
		OutlierCeilingHours:  policy.OutlierCeiling.Hours(),
		FastHours:            policy.FastThreshold.Hours(),
		SlowHours:            policy.SlowThreshold.Hours(),
		MaxUploadBytes:       s.cfg.MaxUploadBytes,
		CacheTTLSeconds:      s.cfg.CacheTTLSeconds,
	}
}
