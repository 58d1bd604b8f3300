package observability

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/config"
)

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	logger.Debug("ingested export", zap.String("encoding", "latin-1"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"ingested export"`)
	assert.Contains(t, string(raw), `"encoding":"latin-1"`)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsExposeCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/report", "GET", 200, 15*time.Millisecond)
	m.RecordError("/api/report", "GET", "INGESTION_FAILED")
	m.RecordIngestion("latin-1", true)
	m.RecordIngestion("", false)
	m.RecordCacheLookup(true)
	m.SetKPIs(KPIs{ResolutionRate: 75.5, SLACompliance: 66.7, Backlog: 3, Total: 12})

	out := scrape(t, m)
	assert.Contains(t, out, `ticket_analytics_http_requests_total{method="GET",path="/api/report",status="200"} 1`)
	assert.Contains(t, out, `ticket_analytics_http_errors_total{code="INGESTION_FAILED",method="GET",path="/api/report"} 1`)
	assert.Contains(t, out, `ticket_analytics_ingestions_total{encoding="latin-1",outcome="success"} 1`)
	assert.Contains(t, out, `ticket_analytics_ingestions_total{encoding="none",outcome="failure"} 1`)
	assert.Contains(t, out, `ticket_analytics_report_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, out, `ticket_analytics_kpi{name="sla_compliance"} 66.7`)
	assert.Contains(t, out, `ticket_analytics_kpi{name="backlog"} 3`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordIngestion("utf-8", true)
		m.RecordCacheLookup(false)
		m.SetKPIs(KPIs{})
	})
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/api/items/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/items/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Contains(t, scrape(t, m), `path="/api/items/:id",status="204"`)
}
