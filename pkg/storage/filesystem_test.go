package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("2026/report.csv", []byte("a,b\n")))

	f, err := store.Open("2026/report.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))

	require.NoError(t, store.Delete("2026/report.csv"))
	require.NoError(t, store.Delete("2026/report.csv"))
	_, err = store.Open("2026/report.csv")
	assert.Error(t, err)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape.csv", "/etc/passwd", "", "a/../../b"} {
		assert.ErrorIs(t, store.Save(name, []byte("x")), ErrInvalidPath, name)
	}
}

func TestLocalStorageCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("old.csv", []byte("x")))
	require.NoError(t, store.Save("new.csv", []byte("y")))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, removed)

	_, err = os.Stat(filepath.Join(dir, "new.csv"))
	assert.NoError(t, err)
}
