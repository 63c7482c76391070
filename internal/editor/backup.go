package editor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"latex-parser/internal/logger"
)

const (
	backupInfix  = ".bak-"
	backupLayout = "20060102T150405.000000000"
)

// BackupManager keeps copies of sources before they are rewritten
type BackupManager struct {
	dir string
	now func() time.Time
}

// NewBackupManager returns a manager that stores backups in dir. An empty
// dir keeps each backup next to its file.
func NewBackupManager(dir string) *BackupManager {
	return &BackupManager{dir: dir, now: time.Now}
}

func (m *BackupManager) dirFor(path string) string {
	if m.dir != "" {
		return m.dir
	}
	return filepath.Dir(path)
}

// Create copies path to a new timestamped backup and returns its path.
func (m *BackupManager) Create(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot back up %s: %w", path, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	dir := m.dirFor(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	t := m.now()
	for {
		backup := filepath.Join(dir, filepath.Base(path)+backupInfix+t.Format(backupLayout))
		dst, err := os.OpenFile(backup, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
		if os.IsExist(err) {
			t = t.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(backup)
			return "", fmt.Errorf("failed to copy file: %w", err)
		}
		if err := dst.Close(); err != nil {
			return "", err
		}
		logger.Debug("backup created", logger.String("path", path), logger.String("backup", backup))
		return backup, nil
	}
}

// Restore copies backup over path.
func (m *BackupManager) Restore(backup, path string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("cannot read backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	logger.Info("file restored from backup", logger.String("path", path), logger.String("backup", backup))
	return nil
}

// List returns the backups of path, newest first.
func (m *BackupManager) List(path string) ([]string, error) {
	dir := m.dirFor(path)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	prefix := filepath.Base(path) + backupInfix
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Latest returns the newest backup of path.
func (m *BackupManager) Latest(path string) (string, error) {
	backups, err := m.List(path)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", fmt.Errorf("no backups found for %s", path)
	}
	return backups[0], nil
}

// Cleanup removes all but the keep newest backups of path and returns how
// many were removed.
func (m *BackupManager) Cleanup(path string, keep int) (int, error) {
	backups, err := m.List(path)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := max(keep, 0); i < len(backups); i++ {
		if err := os.Remove(backups[i]); err != nil {
			logger.Warn("failed to remove backup", logger.String("backup", backups[i]), logger.Err(err))
			continue
		}
		removed++
	}
	logger.Debug("backups cleaned up",
		logger.String("path", path),
		logger.Int("kept", len(backups)-removed),
		logger.Int("removed", removed))
	return removed, nil
}
