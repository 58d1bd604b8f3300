package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSourceNotFound is returned when the active export does not exist yet.
var ErrSourceNotFound = errors.New("source file not found")

const backupTimeLayout = "20060102T150405Z"

// Backup describes one retained copy of a previous export.
type Backup struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore owns the active ticket export on disk and its backups.
type FileStore struct {
	Dir        string
	Name       string
	BackupDir  string
	MaxBackups int

	now func() time.Time
}

// NewFileStore builds a store; a blank backupDir defaults to <dir>/backups.
func NewFileStore(dir, name, backupDir string, maxBackups int) *FileStore {
	if backupDir == "" {
		backupDir = filepath.Join(dir, "backups")
	}
	return &FileStore{Dir: dir, Name: name, BackupDir: backupDir, MaxBackups: maxBackups, now: time.Now}
}

// Path is the location of the active export.
func (s *FileStore) Path() string {
	return filepath.Join(s.Dir, s.Name)
}

// Read returns the active export and its modification time.
func (s *FileStore) Read() ([]byte, time.Time, error) {
	info, err := os.Stat(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, ErrSourceNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, time.Time{}, err
	}
	return raw, info.ModTime(), nil
}

// Replace writes r as the new active export. The previous export, if any, is moved into the
// backup directory first. It returns the backup path, empty when there was nothing to back up.
func (s *FileStore) Replace(r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+s.Name+".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	backupPath, err := s.backupCurrent()
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return backupPath, fmt.Errorf("activate upload: %w", err)
	}
	if err := s.prune(); err != nil {
		return backupPath, err
	}
	return backupPath, nil
}

func (s *FileStore) backupCurrent() (string, error) {
	if _, err := os.Stat(s.Path()); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("%s.%s.%s.bak", s.Name, s.clock().UTC().Format(backupTimeLayout), uuid.NewString()[:8])
	dst := filepath.Join(s.BackupDir, name)
	if err := copyFile(s.Path(), dst); err != nil {
		return "", fmt.Errorf("backup current export: %w", err)
	}
	return dst, nil
}

// Backups lists retained backups, newest first.
func (s *FileStore) Backups() ([]Backup, error) {
	entries, err := os.ReadDir(s.BackupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Backup{}, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := s.Name + "."
	backups := make([]Backup, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".bak") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		backups = append(backups, Backup{
			Name:      name,
			Path:      filepath.Join(s.BackupDir, name),
			SizeBytes: info.Size(),
			CreatedAt: backupTime(name, prefix, info.ModTime()),
		})
	}
	slices.SortFunc(backups, func(a, b Backup) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return backups, nil
}

func (s *FileStore) prune() error {
	if s.MaxBackups <= 0 {
		return nil
	}
	backups, err := s.Backups()
	if err != nil {
		return err
	}
	for _, b := range backups[min(len(backups), s.MaxBackups):] {
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("prune backup %s: %w", b.Name, err)
		}
	}
	return nil
}

func (s *FileStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// backupTime reads the timestamp embedded in a backup name, falling back to fallback.
func backupTime(name, prefix string, fallback time.Time) time.Time {
	stamp, _, ok := strings.Cut(strings.TrimPrefix(name, prefix), ".")
	if !ok {
		return fallback
	}
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return fallback
	}
	return t
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
