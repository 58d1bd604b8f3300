package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/config"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/events"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
	"github.com/spec-kit/ticket-analytics/internal/observability"
	"github.com/spec-kit/ticket-analytics/internal/storage"
	apperrors "github.com/spec-kit/ticket-analytics/pkg/util/errorutil"
)

const exportHeader = "ID;Título;Tipo;Categoría;Prioridad;Estado;Fecha de Apertura;Fecha de solución;" +
	"Se superó el tiempo de resolución;Asignado a: - Técnico;Solicitante - Solicitante;Elementos asociados;" +
	"ANS (Acuerdo de nivel de servicio) - ANS (Acuerdo de nivel de servicio) Tiempo de solución;" +
	"Encuesta de satisfacción - Satisfacción"

var exportRows = []string{
	"1;Impresora atascada;Incidencia;Hardware > Impresora;Alta;Resueltas;2025-05-01 09:00;2025-05-01 11:00;No;Ana;Dr. García;;INC_ALTO;5",
	"2;Nuevo usuario;Requerimiento;Accesos;Mediana;Cerrado;2025-05-02 10:00;2025-05-03 10:00;No;Luis;RRHH;;;4",
	"3;Red caída;Incidencia;Red;Alta;En curso (asignada);2025-05-03 16:00;;Si;;Urgencias;;INC_ALTO;",
}

func exportCSV(rows ...string) string {
	return exportHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttl     time.Duration
	gets    int
}

func (c *memoryCache) GetReport(_ context.Context, checksum string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[checksum]
	return raw, ok, nil
}

func (c *memoryCache) SetReport(_ context.Context, checksum string, report []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[checksum] = report
	c.ttl = ttl
	return nil
}

type memorySnapshots struct {
	created []domain.AnalysisSnapshot
}

func (r *memorySnapshots) Create(_ context.Context, s *domain.AnalysisSnapshot) error {
	s.CreatedAt = time.Now()
	r.created = append(r.created, *s)
	return nil
}

func (r *memorySnapshots) GetLatestByChecksum(_ context.Context, checksum string) (*domain.AnalysisSnapshot, error) {
	for i := len(r.created) - 1; i >= 0; i-- {
		if r.created[i].SourceChecksum == checksum {
			return &r.created[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (r *memorySnapshots) ListRecent(_ context.Context, limit int) ([]domain.AnalysisSnapshot, error) {
	return r.created[:min(limit, len(r.created))], nil
}

type memoryUploads struct {
	created []domain.DatasetUpload
}

func (r *memoryUploads) Create(_ context.Context, u *domain.DatasetUpload) error {
	r.created = append(r.created, *u)
	return nil
}

func (r *memoryUploads) ListRecent(_ context.Context, limit int) ([]domain.DatasetUpload, error) {
	return r.created[:min(limit, len(r.created))], nil
}

type fixture struct {
	svc       *AnalyticsService
	store     *storage.FileStore
	cache     *memoryCache
	snapshots *memorySnapshots
	uploads   *memoryUploads
	events    []events.Event
}

func newFixture(t *testing.T, source string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewFileStore(dir, "glpi.csv", "", 3)
	if source != "" {
		require.NoError(t, os.WriteFile(store.Path(), []byte(source), 0o600))
	}
	f := &fixture{
		store:     store,
		cache:     &memoryCache{},
		snapshots: &memorySnapshots{},
		uploads:   &memoryUploads{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventAnalysisCompleted, events.EventDatasetReplaced, events.EventIngestionFailed} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}
	f.svc = NewAnalyticsService(AnalyticsDependencies{
		Store:      store,
		Normalizer: ingest.NewNormalizer(ingest.DefaultOptions()),
		Engine:     analytics.NewEngine(analytics.DefaultPolicy()),
		Cache:      f.cache,
		Snapshots:  f.snapshots,
		Uploads:    f.uploads,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
		Config: config.AnalyticsConfig{
			MaxUploadBytes:  1 << 20,
			CacheTTLSeconds: 60,
			NarrativeRows:   2,
		},
	})
	return f
}

func (f *fixture) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func TestReportAnalyzesThenServesFromCache(t *testing.T) {
	f := newFixture(t, exportCSV(exportRows...))
	ctx := context.Background()

	first, err := f.svc.Report(ctx)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 3, first.Report.Overall.Total)
	assert.Equal(t, 2, first.Report.Overall.Resolved)
	assert.Equal(t, 50.0, first.Report.SLA.ComplianceRate)
	assert.Equal(t, 1, first.Report.Workload[domain.Unassigned])
	assert.Equal(t, ingest.EncodingUTF8BOM, first.Report.Encoding)
	assert.Equal(t, time.Minute, f.cache.ttl)
	require.Len(t, f.snapshots.created, 1)
	assert.Equal(t, first.Checksum, f.snapshots.created[0].SourceChecksum)
	assert.Equal(t, "glpi.csv", f.snapshots.created[0].SourceName)

	second, err := f.svc.Report(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Equal(t, first.Report.Overall, second.Report.Overall)
	assert.Equal(t, first.Report.SLA, second.Report.SLA)
	assert.Len(t, f.snapshots.created, 1)
	assert.Equal(t, []events.EventType{events.EventAnalysisCompleted, events.EventAnalysisCompleted}, f.eventTypes())
}

func TestReportMissingSource(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.svc.Report(context.Background())
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "SOURCE_NOT_FOUND", de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, f.store.Path(), de.Details["path"])
	assert.Equal(t, []events.EventType{events.EventIngestionFailed}, f.eventTypes())
}

func TestReportMalformedSource(t *testing.T) {
	f := newFixture(t, "ID,Title,Type\n1,a,b\n")

	_, err := f.svc.Report(context.Background())
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "INGESTION_FAILED", de.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, de.HTTPStatus)
	assert.Equal(t, ingest.ReasonMalformed, de.Details["reason"])

	var ingErr *ingest.IngestionError
	assert.ErrorAs(t, err, &ingErr)
	assert.Empty(t, f.snapshots.created)
	assert.Empty(t, f.cache.entries)
}

func TestReportReflectsChangedSource(t *testing.T) {
	f := newFixture(t, exportCSV(exportRows...))
	ctx := context.Background()

	first, err := f.svc.Report(ctx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.store.Path(), []byte(exportCSV(exportRows[0])), 0o600))

	second, err := f.svc.Report(ctx)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.Checksum, second.Checksum)
	assert.Equal(t, 1, second.Report.Overall.Total)
}

func uncachedService(t *testing.T, store *storage.FileStore, snapshots *memorySnapshots, webhook string) *AnalyticsService {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{
		WebhookURL:        webhook,
		SLAAlertThreshold: 90,
	}).RegisterHandlers()
	return NewAnalyticsService(AnalyticsDependencies{
		Store:      store,
		Normalizer: ingest.NewNormalizer(ingest.DefaultOptions()),
		Engine:     analytics.NewEngine(analytics.DefaultPolicy()),
		Snapshots:  snapshots,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
}

func TestUnchangedExportRecordedAndAlertedOnce(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	store := storage.NewFileStore(t.TempDir(), "glpi.csv", "", 3)
	require.NoError(t, os.WriteFile(store.Path(), []byte(exportCSV(exportRows...)), 0o600))
	snapshots := &memorySnapshots{}
	svc := uncachedService(t, store, snapshots, srv.URL)
	ctx := context.Background()

	for range 3 {
		analysis, err := svc.Report(ctx)
		require.NoError(t, err)
		assert.False(t, analysis.Cached)
	}
	assert.Len(t, snapshots.created, 1)
	assert.Len(t, rec.bodies, 1)

	restarted := uncachedService(t, store, snapshots, srv.URL)
	_, err := restarted.Report(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshots.created, 1)
	assert.Len(t, rec.bodies, 1)

	require.NoError(t, os.WriteFile(store.Path(), []byte(exportCSV(exportRows[2])), 0o600))
	_, err = svc.Report(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshots.created, 2)
	assert.Len(t, rec.bodies, 2)
}

func TestValidateExposesColumnsAndFindings(t *testing.T) {
	f := newFixture(t, "ID;Título;Tipo;Estado\n1;a;Incidencia;Nuevo\n1;b;Incidencia;Nuevo\n")

	v, err := f.svc.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Título", v.Columns[domain.FieldTitle])
	assert.Contains(t, v.MissingColumns, domain.MissingColumnWarning{Field: domain.FieldOpenedAt, Required: true})
	assert.Equal(t, 2, v.Findings[analytics.FindingUnassigned].Count)
	assert.Equal(t, 1, v.Findings[analytics.FindingDuplicateIDs].Count)
	assert.NotEmpty(t, v.Warnings)
}

func TestUploadReplacesAndBacksUp(t *testing.T) {
	f := newFixture(t, exportCSV(exportRows[0]))
	ctx := context.Background()

	upload, err := f.svc.Upload(ctx, "mayo.csv", strings.NewReader(exportCSV(exportRows...)))
	require.NoError(t, err)
	assert.Equal(t, "mayo.csv", upload.FileName)
	assert.Equal(t, 3, upload.RowCount)
	require.NotNil(t, upload.BackupPath)
	assert.FileExists(t, *upload.BackupPath)
	assert.Len(t, f.uploads.created, 1)
	assert.Equal(t, []events.EventType{events.EventDatasetReplaced}, f.eventTypes())

	analysis, err := f.svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, upload.Checksum, analysis.Checksum)
	assert.Equal(t, 3, analysis.Report.Overall.Total)
}

func TestUploadRejectsBadFilesWithoutTouchingSource(t *testing.T) {
	original := exportCSV(exportRows[0])
	cases := map[string]struct {
		body string
		code string
	}{
		"empty":     {body: "  \n", code: "VALIDATION_FAILED"},
		"malformed": {body: "ID,Title\n1,x\n", code: "INGESTION_FAILED"},
		"columns":   {body: "ID;Título\n1;x\n", code: "MISSING_REQUIRED_COLUMNS"},
		"too large": {body: exportHeader + "\n" + strings.Repeat("x", 2<<20), code: "PAYLOAD_TOO_LARGE"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, original)
			_, err := f.svc.Upload(context.Background(), "bad.csv", strings.NewReader(tc.body))
			assert.Equal(t, tc.code, apperrors.ToDomainError(err).Code)

			raw, _, readErr := f.store.Read()
			require.NoError(t, readErr)
			assert.Equal(t, original, string(raw))
			assert.Empty(t, f.uploads.created)
		})
	}
}

func TestNarrativeContextBoundsSample(t *testing.T) {
	f := newFixture(t, exportCSV(exportRows...))

	nc, err := f.svc.NarrativeContext(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, nc.SampleRows)
	assert.Equal(t, 3, nc.TotalRows)
	lines := strings.Split(strings.TrimSpace(nc.Sample), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(domain.CanonicalFields, ";"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1;Impresora atascada;Incidencia;"))
	assert.Contains(t, lines[1], ";2025-05-01 09:00;2025-05-01 11:00;met;INC_ALTO;Ana;")
	assert.Equal(t, 3, nc.Overall.Total)
	assert.Equal(t, 2, nc.SLA.TotalIncidents)

	all, err := f.svc.NarrativeContext(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 3, all.SampleRows)
}

func TestHistoryRequiresDatabase(t *testing.T) {
	f := newFixture(t, exportCSV(exportRows...))
	_, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	bare := NewAnalyticsService(AnalyticsDependencies{
		Store:      f.store,
		Normalizer: ingest.NewNormalizer(ingest.Options{}),
		Engine:     analytics.NewEngine(analytics.Policy{}),
	})
	_, err = bare.History(context.Background(), 10)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.ToDomainError(err).HTTPStatus)
	_, err = bare.Uploads(context.Background(), 10)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.ToDomainError(err).HTTPStatus)

	analysis, err := bare.Report(context.Background())
	require.NoError(t, err)
	assert.False(t, analysis.Cached)
}

func TestSettingsReflectEffectivePolicy(t *testing.T) {
	f := newFixture(t, "")
	s := f.svc.Settings()
	assert.Equal(t, filepath.Join(f.store.Dir, "glpi.csv"), s.SourcePath)
	assert.Equal(t, ";", s.Delimiter)
	assert.Equal(t, analytics.UnknownAsCompliant, s.UnknownBreach)
	assert.Equal(t, 720.0, s.OutlierCeilingHours)
	assert.Contains(t, s.IncidentTypes, "Incidencia")
}

func TestChecksumIsStable(t *testing.T) {
	assert.Equal(t, Checksum([]byte("abc")), Checksum([]byte("abc")))
	assert.Len(t, Checksum(nil), 64)
}
