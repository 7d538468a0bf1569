package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("at-risk/cs-phd_report.csv", []byte("Student ID\n"))
	require.NoError(t, err)
	assert.Equal(t, "at-risk/cs-phd_report.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "Student ID\n", string(body))

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, filePerm, info.Mode().Perm())
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, rel := range []string{"", "../secret.csv", "/etc/passwd", "a/../../b.csv"} {
		_, err := store.Save(rel, []byte("x"))
		assert.Error(t, err, rel)
	}
}

func TestLocalStorageOpenMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("at-risk/missing.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	_, err = store.Save("at-risk/old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("at-risk/new.csv", []byte("new"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, "at-risk", "writing.pdf"+tmpExt), []byte("x"), filePerm))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(base, "at-risk", "old.csv"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(base, "at-risk", "writing.pdf"+tmpExt), old, old))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"at-risk/old.csv"}, removed)

	_, err = os.Stat(filepath.Join(base, "at-risk", "new.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "at-risk", "writing.pdf"+tmpExt))
	assert.NoError(t, err)
}
