package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBackups int) *FileStore {
	t.Helper()
	dir := t.TempDir()
	store := NewFileStore(dir, "glpi.csv", "", maxBackups)
	tick := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return store
}

func TestReadMissingSource(t *testing.T) {
	store := newTestStore(t, 3)
	_, _, err := store.Read()
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestReplaceFirstUploadHasNoBackup(t *testing.T) {
	store := newTestStore(t, 3)

	backup, err := store.Replace(strings.NewReader("ID;Título\n1;a\n"))
	require.NoError(t, err)
	assert.Empty(t, backup)

	raw, modTime, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "ID;Título\n1;a\n", string(raw))
	assert.False(t, modTime.IsZero())

	backups, err := store.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestReplaceBacksUpPreviousExport(t *testing.T) {
	store := newTestStore(t, 3)
	_, err := store.Replace(strings.NewReader("v1"))
	require.NoError(t, err)

	backup, err := store.Replace(strings.NewReader("v2"))
	require.NoError(t, err)
	require.NotEmpty(t, backup)
	assert.Equal(t, filepath.Join(store.Dir, "backups"), filepath.Dir(backup))
	assert.Regexp(t, `^glpi\.csv\.20250501T120100Z\.[0-9a-f]{8}\.bak$`, filepath.Base(backup))

	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(old))

	raw, _, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "v2", string(raw))

	leftovers, err := filepath.Glob(filepath.Join(store.Dir, ".glpi.csv.upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestReplacePrunesOldestBackups(t *testing.T) {
	store := newTestStore(t, 2)
	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		_, err := store.Replace(strings.NewReader(v))
		require.NoError(t, err)
	}

	backups, err := store.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.True(t, backups[0].CreatedAt.After(backups[1].CreatedAt))

	newest, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "v4", string(newest))
	oldest, err := os.ReadFile(backups[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "v3", string(oldest))
}

func TestBackupsIgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t, 0)
	require.NoError(t, os.MkdirAll(store.BackupDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.BackupDir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.BackupDir, "glpi.csv.bogus.bak"), []byte("x"), 0o600))

	backups, err := store.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "glpi.csv.bogus.bak", backups[0].Name)
}
