package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuan-shuo/decoder/internal/indexer"
	"github.com/yuan-shuo/decoder/internal/storage"
)

func TestTriggerReindex(t *testing.T) {
	project := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "watch.db")
	file := filepath.Join(project, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("def f():\n    pass\n"), 0o644))

	var started []string
	var done *indexer.Stats
	w, err := New(project, dbPath,
		WithOnIndexStart(func(files []string) { started = files }),
		WithOnIndexDone(func(stats *indexer.Stats) { done = stats }),
	)
	require.NoError(t, err)
	defer w.Stop()

	w.pendingFiles[file] = struct{}{}
	w.triggerReindex()

	require.NotNil(t, done)
	assert.Equal(t, []string{file}, started)
	assert.Equal(t, 1, done.FilesIndexed)
	assert.Equal(t, 1, done.Symbols)

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetSymbolByQualifiedName("mod.f")
	assert.NoError(t, err)
}

func TestTriggerReindexRemovesDeletedFiles(t *testing.T) {
	project := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "watch.db")
	file := filepath.Join(project, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("def f():\n    pass\n"), 0o644))

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	_, err = indexer.New(db).IndexFile(context.Background(), project, "mod.py")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	w, err := New(project, dbPath)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.Remove(file))
	w.pendingFiles[file] = struct{}{}
	w.triggerReindex()

	db, err = storage.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetSymbolByQualifiedName("mod.f")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTriggerReindexWithNothingPendingIsNoop(t *testing.T) {
	project := t.TempDir()
	w, err := New(project, filepath.Join(t.TempDir(), "watch.db"),
		WithOnIndexStart(func([]string) { t.Fatal("unexpected index start") }),
	)
	require.NoError(t, err)
	defer w.Stop()

	w.triggerReindex()
}

func TestWatcherPicksUpWrites(t *testing.T) {
	project := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "watch.db")

	doneCh := make(chan *indexer.Stats, 1)
	w, err := New(project, dbPath,
		WithDebounceDelay(50*time.Millisecond),
		WithOnIndexDone(func(stats *indexer.Stats) { doneCh <- stats }),
	)
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	// Non-Python files never schedule a reindex
	require.NoError(t, os.WriteFile(filepath.Join(project, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "mod.py"), []byte("def f():\n    pass\n"), 0o644))

	select {
	case stats := <-doneCh:
		assert.Equal(t, 1, stats.FilesIndexed)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reindex")
	}

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetSymbolByQualifiedName("mod.f")
	assert.NoError(t, err)
}
