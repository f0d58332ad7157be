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

func TestExportDirWriteAndReplace(t *testing.T) {
	dir, err := NewExportDir(t.TempDir())
	require.NoError(t, err)

	path, err := dir.Write("calendars/css1-a.ics", []byte("BEGIN:VCALENDAR\r\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir.Dir(), "calendars", "css1-a.ics"), path)

	_, err = dir.Copy("calendars/css1-a.ics", strings.NewReader("replaced"))
	require.NoError(t, err)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(body))

	entries, err := os.ReadDir(filepath.Join(dir.Dir(), "calendars"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExportDirRejectsEscapingNames(t *testing.T) {
	dir, err := NewExportDir(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../roster.csv", "a/../../roster.csv", "/etc/passwd"} {
		_, err := dir.Write(name, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideDir, name)
	}
}

func TestExportDirPrune(t *testing.T) {
	dir, err := NewExportDir(t.TempDir())
	require.NoError(t, err)

	oldPath, err := dir.Write("old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = dir.Write("fresh.csv", []byte("b"))
	require.NoError(t, err)

	now := time.Now()
	stale := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	deleted, err := dir.Prune(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
}
