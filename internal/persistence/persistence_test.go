package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/config"
)

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_more.sql"}, files)

	_, err = migrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.False(t, pg.Enabled())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestRedisWithoutAddrIsNoopCache(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	ctx := context.Background()
	assert.False(t, r.Enabled())

	assert.NoError(t, r.SetReport(ctx, "abc", []byte("{}"), time.Minute))
	raw, ok, err := r.GetReport(ctx, "abc")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, raw)
	assert.Error(t, r.Ping(ctx))
	r.Close()
}
