package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-analytics/internal/ingest"
)

const sampleExport = "ID;Título;Tipo;Categoría;Prioridad;Estado;Fecha de Apertura;Fecha de solución;" +
	"Se superó el tiempo de resolución;Asignado a: - Técnico;Solicitante - Solicitante;" +
	"Encuesta de satisfacción - Satisfacción\n" +
	"1;Impresora;Incidencia;Hardware > Impresora;Alta;Resueltas;2025-05-01 09:00;2025-05-01 11:00;No;Ana;Dr. García;5\n" +
	"2;Alta usuario;Requerimiento;Accesos;Mediana;Cerrado;2025-05-02 10:00;2025-05-03 10:00;No;Luis;RRHH;4\n" +
	"3;Red caída;Incidencia;Red;Alta;En curso (asignada);2025-05-03 16:00;;Si;;Urgencias;\n"

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeExport(t, dir, "mayo.csv", sampleExport)
	second := writeExport(t, dir, "junio.csv", sampleExport+"4;Monitor;Incidencia;Hardware;Baja;Nuevo;2025-06-01 08:00;;No;Ana;RRHH;\n")

	out, err := run(t, "analyze", "--parallel", "2", first, second)
	require.NoError(t, err)

	var reports []FileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, first, reports[0].File)
	assert.Equal(t, 3, reports[0].Report.Overall.Total)
	assert.Equal(t, second, reports[1].File)
	assert.Equal(t, 4, reports[1].Report.Overall.Total)
	assert.NotEqual(t, reports[0].Checksum, reports[1].Checksum)
	assert.Len(t, reports[0].Checksum, 64)
}

func TestAnalyzeFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeExport(t, dir, "mayo.csv", sampleExport)

	missing := filepath.Join(dir, "nope.csv")

	_, err := run(t, "analyze", good, missing)
	require.Error(t, err)
	assert.True(t, ingest.IsFileMissing(err))
	assert.Contains(t, err.Error(), missing)

	_, err = run(t, "validate", missing)
	assert.True(t, ingest.IsFileMissing(err))
}

func TestAnalyzeRejectsBadFlags(t *testing.T) {
	path := writeExport(t, t.TempDir(), "mayo.csv", sampleExport)

	_, err := run(t, "analyze", "--encoding", "ebcdic", path)
	assert.ErrorContains(t, err, "unknown encoding")

	_, err = run(t, "analyze", "--unknown-breach", "maybe", path)
	assert.ErrorContains(t, err, "--unknown-breach")
}

func TestValidateReportsColumns(t *testing.T) {
	path := writeExport(t, t.TempDir(), "mayo.csv", sampleExport)

	out, err := run(t, "validate", path)
	require.NoError(t, err)

	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, "ID", result.Columns["id"])
	assert.Contains(t, result.Findings, "unassigned_tickets")
	for _, m := range result.MissingColumns {
		assert.False(t, m.Required, m.Field)
	}
}

func TestValidateStrictFailsOnRequiredColumns(t *testing.T) {
	path := writeExport(t, t.TempDir(), "notas.csv", "Nombre;Comentario\nAna;hola\n")

	_, err := run(t, "validate", path)
	require.NoError(t, err)

	_, err = run(t, "validate", "--strict", path)
	assert.ErrorContains(t, err, "missing required columns")
}

func TestExportReportWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "mayo.csv", sampleExport)
	out := filepath.Join(dir, "report.json")

	stdout, err := run(t, "export-report", path, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, out)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var report FileReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, 66.7, report.Report.Overall.ResolutionRate)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".report.json.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestGenerateSampleIsIngestible(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sample.csv")

	stdout, err := run(t, "generate-sample", "--rows", "40", "--seed", "7", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, out)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "ID;Título;Tipo;Categoría;Prioridad;Estado;Fecha de Apertura;"))

	report, err := run(t, "validate", "--strict", out)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(report), &result))
	assert.Equal(t, 40, result.Rows)
	assert.Empty(t, result.MissingColumns)
	assert.Empty(t, result.Warnings)
}

func TestGenerateSampleIsDeterministic(t *testing.T) {
	from := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	a, err := generateSample(25, 3, from)
	require.NoError(t, err)
	b, err := generateSample(25, 3, from)
	require.NoError(t, err)
	c, err := generateSample(25, 4, from)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateSampleRejectsBadFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sample.csv")

	_, err := run(t, "generate-sample", "--rows", "-1", out)
	assert.ErrorContains(t, err, "--rows")

	_, err = run(t, "generate-sample", "--start", "mayo", out)
	assert.ErrorContains(t, err, "--start")
}
