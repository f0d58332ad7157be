// Package storage writes rendered exports (calendars, rosters) to a local
// directory for operators running batch jobs.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrOutsideDir is returned for names that would resolve outside the export directory.
var ErrOutsideDir = errors.New("export path escapes the export directory")

// ExportDir persists files under a base directory.
type ExportDir struct {
	baseDir string
}

// NewExportDir ensures the base directory exists.
func NewExportDir(baseDir string) (*ExportDir, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &ExportDir{baseDir: baseDir}, nil
}

// Write stores body under name and returns the full path. Existing files are
// replaced atomically.
func (d *ExportDir) Write(name string, body []byte) (string, error) {
	path, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("publish export file: %w", err)
	}
	return path, nil
}

// Copy streams r into name.
func (d *ExportDir) Copy(name string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read export stream: %w", err)
	}
	return d.Write(name, body)
}

// Prune removes files older than ttl and returns their names relative to the
// base directory.
func (d *ExportDir) Prune(ttl time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(d.baseDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(d.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prune exports: %w", err)
	}
	return deleted, nil
}

// Dir returns the base directory.
func (d *ExportDir) Dir() string { return d.baseDir }

func (d *ExportDir) resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", ErrOutsideDir
	}
	path := filepath.Join(d.baseDir, filepath.Clean(name))
	rel, err := filepath.Rel(d.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideDir
	}
	return path, nil
}
