package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := NewRotatingWriter(path, 0, 2) // maxSizeMB=0 -> rotate on every write
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("first line\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second line\n"))
	require.NoError(t, err)

	rotated := filepath.Join(dir, "server.log.1")
	_, statErr := os.Stat(rotated)
	assert.NoError(t, statErr)
}

func TestRotatingWriterPrunesBeyondMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := NewRotatingWriter(path, 0, 1)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err = w.Write([]byte("line\n"))
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "server.log.*"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 1)
}

func TestRotatingWriterSyncAndClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(filepath.Join(dir, "server.log"), 10, 5)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.NoError(t, w.Sync())
	assert.NoError(t, w.Close())
}
