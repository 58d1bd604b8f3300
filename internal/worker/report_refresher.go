package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/service"
	apperrors "github.com/spec-kit/ticket-analytics/pkg/util/errorutil"
)

// Reporter produces the analysis of the active export.
type Reporter interface {
	Report(ctx context.Context) (*service.Analysis, error)
}

// ReportRefresher re-analyzes the export on a fixed interval so the cache, the KPI gauges and
// the snapshot history follow edits made to the file outside the upload endpoint.
type ReportRefresher struct {
	reporter Reporter
	interval time.Duration
	logger   *zap.Logger

	lastChecksum string
}

// NewReportRefresher creates a refresher.
func NewReportRefresher(reporter Reporter, interval time.Duration, logger *zap.Logger) *ReportRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportRefresher{reporter: reporter, interval: interval, logger: logger}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (r *ReportRefresher) Run(ctx context.Context) {
	if r.reporter == nil || r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one analysis. It reports whether the export changed since the previous run.
func (r *ReportRefresher) Refresh(ctx context.Context) bool {
	analysis, err := r.reporter.Report(ctx)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "SOURCE_NOT_FOUND" {
			r.logger.Debug("no export to refresh")
			return false
		}
		r.logger.Warn("background refresh failed", zap.Error(err))
		return false
	}
	if analysis.Checksum == r.lastChecksum {
		return false
	}
	r.logger.Info("export changed",
		zap.String("checksum", analysis.Checksum),
		zap.Int("tickets", analysis.Report.Overall.Total))
	r.lastChecksum = analysis.Checksum
	return true
}
