package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANALYTICS_DATA_DIR", "/srv/tickets")
	t.Setenv("LOG_FILE", "")
	t.Setenv("ANALYTICS_RULES_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/tickets/glpi.csv", cfg.Analytics.SourcePath())
	assert.Equal(t, "/srv/tickets/backups", cfg.Analytics.BackupDir)
	assert.Equal(t, 200, cfg.Analytics.NarrativeRows)
	assert.Equal(t, 10, cfg.Logger.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logger.MaxBackups)
	assert.Equal(t, 80.0, cfg.Notification.SLAAlertThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Analytics.CacheTTL())
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFallsBackOnBadOptionalInts(t *testing.T) {
	t.Setenv("ANALYTICS_NARRATIVE_ROWS", "many")
	t.Setenv("ANALYTICS_CACHE_TTL_SECONDS", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Analytics.NarrativeRows)
	assert.Zero(t, cfg.Analytics.CacheTTL())
}

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRulesOverridesTables(t *testing.T) {
	path := writeRules(t, `
encodings: [latin-1, utf-8]
delimiter: ","
aliases:
  technician: ["Owner"]
resolved_statuses: [Done]
incident_types: [Bug]
hardware_keywords: [Laptop]
priority_estimates:
  - labels: [P1]
    hours: 4
outlier_ceiling_hours: 240
`)
	rules, err := LoadRules(path)
	require.NoError(t, err)

	opts := rules.IngestOptions()
	assert.Equal(t, []string{"latin-1", "utf-8"}, opts.Encodings)
	assert.Equal(t, ',', opts.Delimiter)
	assert.Equal(t, []string{"Owner"}, opts.Aliases[domain.FieldTechnician])
	assert.Equal(t, ingest.DefaultAliases()[domain.FieldStatus], opts.Aliases[domain.FieldStatus])
	assert.Equal(t, ingest.DefaultOptions().NullLiterals, opts.NullLiterals)

	policy := rules.Policy("breached")
	assert.Equal(t, analytics.UnknownAsBreached, policy.UnknownBreach)
	assert.True(t, policy.ResolvedStatuses.Contains("done"))
	assert.True(t, policy.IncidentTypes.Contains("Bug"))
	assert.Equal(t, []string{"Laptop"}, policy.HardwareKeywords)
	assert.Equal(t, []analytics.PriorityEstimate{{Labels: []string{"P1"}, Hours: 4}}, policy.PriorityEstimates)
	assert.Equal(t, 240*time.Hour, policy.OutlierCeiling)
	assert.Equal(t, analytics.DefaultPolicy().SlowThreshold, policy.SlowThreshold)
}

func TestLoadRulesEmptyPathKeepsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, ingest.DefaultOptions().Encodings, rules.IngestOptions().Encodings)
	assert.Equal(t, analytics.DefaultPolicy().IncidentTypes, rules.Policy("").IncidentTypes)
}

func TestLoadRulesValidation(t *testing.T) {
	cases := map[string]string{
		"delimiter": `delimiter: ";;"`,
		"encoding":  `encodings: [ebcdic]`,
		"field":     "aliases:\n  owner: [X]",
		"timezone":  `timezone: Mars/Olympus`,
		"yaml":      `encodings: [`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
