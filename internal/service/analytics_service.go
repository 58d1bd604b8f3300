package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/config"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/events"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
	"github.com/spec-kit/ticket-analytics/internal/observability"
	"github.com/spec-kit/ticket-analytics/internal/repository"
	"github.com/spec-kit/ticket-analytics/internal/storage"
	apperrors "github.com/spec-kit/ticket-analytics/pkg/util/errorutil"
)

// SourceStore supplies the active export and accepts replacements.
type SourceStore interface {
	Path() string
	Read() ([]byte, time.Time, error)
	Replace(r io.Reader) (string, error)
	Backups() ([]storage.Backup, error)
}

// ReportCache stores rendered analyses keyed by source checksum.
type ReportCache interface {
	GetReport(ctx context.Context, checksum string) ([]byte, bool, error)
	SetReport(ctx context.Context, checksum string, report []byte, ttl time.Duration) error
}

// Analysis is one full analysis of the active export.
type Analysis struct {
	Checksum         string                        `json:"checksum"`
	SourceModifiedAt time.Time                     `json:"source_modified_at"`
	GeneratedAt      time.Time                     `json:"generated_at"`
	Cached           bool                          `json:"cached"`
	Columns          map[string]string             `json:"columns"`
	MissingColumns   []domain.MissingColumnWarning `json:"missing_columns"`
	Report           analytics.Report              `json:"report"`
}

// AnalyticsService runs ingestion and analysis over the active export.
type AnalyticsService struct {
	store      SourceStore
	normalizer *ingest.Normalizer
	engine     *analytics.Engine
	cache      ReportCache
	snapshots  repository.SnapshotRepository
	uploads    repository.UploadRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AnalyticsConfig

	flight singleflight.Group
	now    func() time.Time

	mu           sync.Mutex
	lastRecorded string
}

// AnalyticsDependencies bundles collaborators for the analytics service. Cache, Snapshots,
// Uploads, Dispatcher and Metrics are optional.
type AnalyticsDependencies struct {
	Store      SourceStore
	Normalizer *ingest.Normalizer
	Engine     *analytics.Engine
	Cache      ReportCache
	Snapshots  repository.SnapshotRepository
	Uploads    repository.UploadRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.AnalyticsConfig
}

// NewAnalyticsService creates the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		store:      deps.Store,
		normalizer: deps.Normalizer,
		engine:     deps.Engine,
		cache:      deps.Cache,
		snapshots:  deps.Snapshots,
		uploads:    deps.Uploads,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        deps.Config,
		now:        time.Now,
	}
}

// Engine exposes the analysis engine and its effective policy.
func (s *AnalyticsService) Engine() *analytics.Engine {
	return s.engine
}

// Normalizer exposes the ingestion settings.
func (s *AnalyticsService) Normalizer() *ingest.Normalizer {
	return s.normalizer
}

// Report returns the full analysis of the active export, served from the cache when the
// export has not changed since it was last analyzed.
func (s *AnalyticsService) Report(ctx context.Context) (*Analysis, error) {
	raw, modTime, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	checksum := Checksum(raw)

	if analysis, ok := s.cached(ctx, checksum); ok {
		s.publish(ctx, events.EventAnalysisCompleted, completedPayload(analysis, false))
		return analysis, nil
	}

	v, err, _ := s.flight.Do(checksum, func() (any, error) {
		return s.analyze(ctx, raw, checksum, modTime)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Analysis), nil
}

func (s *AnalyticsService) read(ctx context.Context) ([]byte, time.Time, error) {
	raw, modTime, err := s.store.Read()
	if errors.Is(err, storage.ErrSourceNotFound) {
		s.publish(ctx, events.EventIngestionFailed, events.IngestionFailedPayload{
			Reason: ingest.ReasonFileMissing,
			Error:  err.Error(),
		})
		return nil, time.Time{}, apperrors.NewDomainError("SOURCE_NOT_FOUND",
			"no ticket export has been uploaded yet",
			http.StatusNotFound,
			map[string]any{"path": s.store.Path()})
	}
	if err != nil {
		return nil, time.Time{}, apperrors.NewInternalError(err)
	}
	return raw, modTime, nil
}

func (s *AnalyticsService) cached(ctx context.Context, checksum string) (*Analysis, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.GetReport(ctx, checksum)
	if err != nil {
		s.logger.Warn("report cache lookup failed", zap.Error(err))
		return nil, false
	}
	s.metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	var analysis Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		s.logger.Warn("discarding unreadable cached report", zap.Error(err))
		return nil, false
	}
	analysis.Cached = true
	return &analysis, true
}

func (s *AnalyticsService) analyze(ctx context.Context, raw []byte, checksum string, modTime time.Time) (*Analysis, error) {
	rs, err := s.ingest(ctx, raw)
	if err != nil {
		return nil, err
	}

	report := s.engine.Report(rs)
	analysis := &Analysis{
		Checksum:         checksum,
		SourceModifiedAt: modTime,
		GeneratedAt:      s.now().UTC(),
		Columns:          rs.Columns(),
		MissingColumns:   rs.MissingColumns(),
		Report:           report,
	}
	if analysis.MissingColumns == nil {
		analysis.MissingColumns = []domain.MissingColumnWarning{}
	}

	s.metrics.SetKPIs(observability.KPIs{
		ResolutionRate: report.Overall.ResolutionRate,
		SLACompliance:  report.Overall.SLACompliance,
		CSATPercentage: report.Overall.CSATPercentage,
		Backlog:        report.Overall.Backlog,
		Total:          report.Overall.Total,
	})
	s.cacheAnalysis(ctx, analysis)
	repeat := s.alreadyRecorded(ctx, checksum)
	if !repeat {
		s.saveSnapshot(ctx, analysis)
		s.markRecorded(checksum)
	}
	s.publish(ctx, events.EventAnalysisCompleted, completedPayload(analysis, repeat))

	s.logger.Info("analysis completed",
		zap.String("checksum", checksum),
		zap.String("encoding", rs.Encoding()),
		zap.Int("tickets", rs.Len()),
		zap.Int("warnings", len(report.Warnings)))
	return analysis, nil
}

// ingest normalizes raw bytes, translating failures into API errors.
func (s *AnalyticsService) ingest(ctx context.Context, raw []byte) (*domain.RecordSet, error) {
	rs, err := s.normalizer.Ingest(raw, s.store.Path(), s.cfg.PreferredEncoding)
	if err != nil {
		s.metrics.RecordIngestion("", false)
		return nil, s.ingestionFailure(ctx, err)
	}
	s.metrics.RecordIngestion(rs.Encoding(), true)
	return rs, nil
}

func (s *AnalyticsService) ingestionFailure(ctx context.Context, err error) error {
	var ingErr *ingest.IngestionError
	if !errors.As(err, &ingErr) {
		return apperrors.NewInternalError(err)
	}
	attempts := make([]string, 0, len(ingErr.Attempts))
	for _, a := range ingErr.Attempts {
		attempts = append(attempts, a.Encoding)
	}
	s.logger.Warn("ingestion failed", zap.String("path", ingErr.Path), zap.String("reason", ingErr.Reason), zap.Error(ingErr.Err))
	s.publish(ctx, events.EventIngestionFailed, events.IngestionFailedPayload{
		Reason:   ingErr.Reason,
		Attempts: attempts,
		Error:    ingErr.Error(),
	})
	details := map[string]any{
		"path":   ingErr.Path,
		"reason": ingErr.Reason,
	}
	if len(ingErr.Attempts) > 0 {
		details["attempts"] = ingErr.Attempts
	}
	return apperrors.NewUnprocessable("INGESTION_FAILED", "ticket export could not be read: "+ingErr.Reason, details, ingErr)
}

func (s *AnalyticsService) cacheAnalysis(ctx context.Context, analysis *Analysis) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		s.logger.Warn("encode report for cache", zap.Error(err))
		return
	}
	if err := s.cache.SetReport(ctx, analysis.Checksum, raw, s.cfg.CacheTTL()); err != nil {
		s.logger.Warn("report cache store failed", zap.Error(err))
	}
}

// alreadyRecorded reports whether this export content was analyzed before, by this process or,
// when history is stored, by any earlier run.
func (s *AnalyticsService) alreadyRecorded(ctx context.Context, checksum string) bool {
	s.mu.Lock()
	last := s.lastRecorded
	s.mu.Unlock()
	if last == checksum {
		return true
	}
	if s.snapshots == nil {
		return false
	}
	snapshot, err := s.snapshots.GetLatestByChecksum(ctx, checksum)
	if err != nil {
		s.logger.Debug("no snapshot for checksum", zap.String("checksum", checksum), zap.Error(err))
		return false
	}
	if snapshot == nil {
		return false
	}
	s.markRecorded(checksum)
	return true
}

func (s *AnalyticsService) markRecorded(checksum string) {
	s.mu.Lock()
	s.lastRecorded = checksum
	s.mu.Unlock()
}

func (s *AnalyticsService) saveSnapshot(ctx context.Context, analysis *Analysis) {
	if s.snapshots == nil {
		return
	}
	findings := make(map[string]any, len(analysis.Report.Findings))
	for key, f := range analysis.Report.Findings {
		findings[key] = f
	}
	overall := analysis.Report.Overall
	snapshot := &domain.AnalysisSnapshot{
		ID:             uuid.NewString(),
		SourceName:     filepath.Base(s.store.Path()),
		SourceChecksum: analysis.Checksum,
		Encoding:       analysis.Report.Encoding,
		TotalTickets:   overall.Total,
		ResolutionRate: overall.ResolutionRate,
		SLACompliance:  overall.SLACompliance,
		CSATPercentage: overall.CSATPercentage,
		Backlog:        overall.Backlog,
		Findings:       findings,
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		s.logger.Warn("persist analysis snapshot failed", zap.Error(err))
	}
}

// Validation summarizes how well the export maps onto the canonical schema.
type Validation struct {
	Columns        map[string]string             `json:"columns"`
	MissingColumns []domain.MissingColumnWarning `json:"missing_columns"`
	Findings       map[string]analytics.Finding  `json:"findings"`
	Warnings       []string                      `json:"warnings"`
}

// Validate returns the data-quality view of the active export.
func (s *AnalyticsService) Validate(ctx context.Context) (*Validation, error) {
	analysis, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	return &Validation{
		Columns:        analysis.Columns,
		MissingColumns: analysis.MissingColumns,
		Findings:       analysis.Report.Findings,
		Warnings:       analysis.Report.Warnings,
	}, nil
}

// Upload validates and installs a replacement export. The current export is kept as a backup.
func (s *AnalyticsService) Upload(ctx context.Context, fileName string, r io.Reader) (*domain.DatasetUpload, error) {
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 16 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if int64(len(raw)) > limit {
		return nil, apperrors.NewPayloadTooLarge(limit)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.NewValidationError("uploaded file is empty", map[string]any{"file": fileName})
	}

	rs, err := s.ingest(ctx, raw)
	if err != nil {
		return nil, err
	}
	if missing := missingRequired(rs); len(missing) > 0 {
		return nil, apperrors.NewUnprocessable("MISSING_REQUIRED_COLUMNS",
			"uploaded export lacks required columns",
			map[string]any{"missing": missing, "file": fileName},
			nil)
	}

	backupPath, err := s.store.Replace(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	upload := &domain.DatasetUpload{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Checksum:  Checksum(raw),
		SizeBytes: int64(len(raw)),
		RowCount:  rs.Len(),
		CreatedAt: s.now().UTC(),
	}
	if backupPath != "" {
		upload.BackupPath = &backupPath
	}
	if s.uploads != nil {
		if err := s.uploads.Create(ctx, upload); err != nil {
			s.logger.Warn("record dataset upload failed", zap.Error(err))
		}
	}

	s.publish(ctx, events.EventDatasetReplaced, events.DatasetReplacedPayload{
		UploadID:   upload.ID,
		FileName:   upload.FileName,
		Checksum:   upload.Checksum,
		RowCount:   upload.RowCount,
		BackupPath: backupPath,
	})
	s.logger.Info("dataset replaced",
		zap.String("file", fileName),
		zap.Int("rows", upload.RowCount),
		zap.String("backup", backupPath))
	return upload, nil
}

// History lists recent analysis snapshots.
func (s *AnalyticsService) History(ctx context.Context, limit int) ([]domain.AnalysisSnapshot, error) {
	if s.snapshots == nil {
		return nil, apperrors.NewServiceUnavailable("analysis history requires a database")
	}
	snapshots, err := s.snapshots.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if snapshots == nil {
		snapshots = []domain.AnalysisSnapshot{}
	}
	return snapshots, nil
}

// Uploads lists recent dataset replacements.
func (s *AnalyticsService) Uploads(ctx context.Context, limit int) ([]domain.DatasetUpload, error) {
	if s.uploads == nil {
		return nil, apperrors.NewServiceUnavailable("upload history requires a database")
	}
	uploads, err := s.uploads.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if uploads == nil {
		uploads = []domain.DatasetUpload{}
	}
	return uploads, nil
}

// Backups lists retained copies of previous exports.
func (s *AnalyticsService) Backups() ([]storage.Backup, error) {
	backups, err := s.store.Backups()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return backups, nil
}

func (s *AnalyticsService) publish(ctx context.Context, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    s.store.Path(),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func completedPayload(a *Analysis, repeat bool) events.AnalysisCompletedPayload {
	return events.AnalysisCompletedPayload{
		Checksum:       a.Checksum,
		Encoding:       a.Report.Encoding,
		TotalTickets:   a.Report.Overall.Total,
		ResolutionRate: a.Report.Overall.ResolutionRate,
		SLACompliance:  a.Report.Overall.SLACompliance,
		TotalIncidents: a.Report.SLA.TotalIncidents,
		CSATPercentage: a.Report.Overall.CSATPercentage,
		Warnings:       len(a.Report.Warnings),
		Cached:         a.Cached,
		Repeat:         repeat,
	}
}

func missingRequired(rs *domain.RecordSet) []string {
	var missing []string
	for _, w := range rs.MissingColumns() {
		if w.Required {
			missing = append(missing, w.Field)
		}
	}
	return missing
}

// Checksum is the hex SHA-256 of an export, used as its cache identity.
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
