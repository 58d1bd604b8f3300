package service

import (
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	apperrors "github.com/spec-kit/ticket-analytics/pkg/util/errorutil"
)

const maxNarrativeRows = 1000

// NarrativeContext is the textual context handed to a report-writing collaborator.
type NarrativeContext struct {
	Checksum     string                   `json:"checksum"`
	Overall      analytics.OverallMetrics `json:"overall"`
	Distribution analytics.Distribution   `json:"distribution"`
	SLA          analytics.SLAAnalysis    `json:"sla"`
	CSAT         analytics.CSATAnalysis   `json:"csat"`
	SampleRows   int                      `json:"sample_rows"`
	TotalRows    int                      `json:"total_rows"`
	Sample       string                   `json:"sample"`
}

// NarrativeContext returns the headline metrics plus the first rows of the export rendered
// as semicolon-delimited text. rows <= 0 uses the configured default.
func (s *AnalyticsService) NarrativeContext(ctx context.Context, rows int) (*NarrativeContext, error) {
	if rows <= 0 {
		rows = s.cfg.NarrativeRows
	}
	rows = min(max(rows, 1), maxNarrativeRows)

	raw, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.ingest(ctx, raw)
	if err != nil {
		return nil, err
	}
	sample, n, err := renderSample(rs, rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &NarrativeContext{
		Checksum:     Checksum(raw),
		Overall:      s.engine.Overall(rs),
		Distribution: s.engine.Distribution(rs),
		SLA:          s.engine.SLA(rs),
		CSAT:         s.engine.CSAT(rs),
		SampleRows:   n,
		TotalRows:    rs.Len(),
		Sample:       sample,
	}, nil
}

// renderSample writes up to limit tickets under the canonical header.
func renderSample(rs *domain.RecordSet, limit int) (string, int, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = ';'
	if err := w.Write(domain.CanonicalFields); err != nil {
		return "", 0, err
	}
	n := 0
	for _, t := range rs.All() {
		if n == limit {
			break
		}
		if err := w.Write(ticketRecord(t)); err != nil {
			return "", 0, err
		}
		n++
	}
	w.Flush()
	return b.String(), n, w.Error()
}

func ticketRecord(t domain.Ticket) []string {
	rating := ""
	if t.HasRating() {
		rating = strconv.FormatFloat(t.Satisfaction, 'f', -1, 64)
	}
	breached := ""
	if t.SLABreached != domain.SLAUnknown {
		breached = t.SLABreached.String()
	}
	return []string{
		t.ID,
		t.Title,
		t.Type,
		t.Category,
		t.Priority,
		t.Status,
		formatTime(t.OpenedAt),
		formatTime(t.ClosedAt),
		breached,
		t.SLATier,
		t.Technician,
		t.Requester,
		t.AssociatedAssets,
		rating,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
