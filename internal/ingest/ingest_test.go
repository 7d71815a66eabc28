package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPrepareFileDerivesStableUploadID(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "bill.PDF")
	b := filepath.Join(dir, "copy", "same.pdf")
	writeFile(t, a, "%PDF-1.4 bill")
	writeFile(t, b, "%PDF-1.4 bill")

	ua, err := PrepareFile(a)
	require.NoError(t, err)
	ub, err := PrepareFile(b)
	require.NoError(t, err)

	assert.Equal(t, ua.UploadID, ub.UploadID)
	assert.Equal(t, ua.HashHex, ub.HashHex)
	assert.Len(t, ua.HashHex, 64)
	assert.Equal(t, "pdf", ua.FileExt)
	assert.Equal(t, int64(13), ua.Size)
	assert.True(t, filepath.IsAbs(ua.SourcePath))

	parsed, err := uuid.Parse(ua.UploadID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
	assert.Equal(t, UploadIDForHash(ua.HashHex), ua.UploadID)
}

func TestPrepareFileRejects(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	empty := filepath.Join(dir, "empty.png")
	writeFile(t, txt, "hello")
	writeFile(t, empty, "")

	_, err := PrepareFile(txt)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = PrepareFile(empty)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = PrepareFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestWalkDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "one")
	writeFile(t, filepath.Join(root, "b.jpg"), "two")
	writeFile(t, filepath.Join(root, "nested", "c.pdf"), "one")
	writeFile(t, filepath.Join(root, "nested", "readme.md"), "skip")
	writeFile(t, filepath.Join(root, ".cache", "d.pdf"), "hidden")
	writeFile(t, filepath.Join(root, "empty.png"), "")

	uploads, stats, err := WalkDirectory(context.Background(), root, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	require.Len(t, uploads, 4)

	var dups int
	for _, u := range uploads {
		assert.NotContains(t, u.SourcePath, ".cache")
		if u.Deduplicated {
			dups++
			assert.Contains(t, u.SourcePath, "c.pdf")
		}
	}
	assert.Equal(t, 1, dups)

	_, stats, err = WalkDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), stats.Matched)

	_, _, err = WalkDirectory(context.Background(), " ", false)
	assert.Error(t, err)
}

func TestWatcherEmitsExistingAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing, "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan event not received")
	}

	fresh := filepath.Join(root, "fresh.png")
	writeFile(t, fresh, "new")
	writeFile(t, filepath.Join(root, ".partial.pdf"), "tmp")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")

	select {
	case p := <-events:
		assert.Equal(t, fresh, p)
	case <-time.After(3 * time.Second):
		t.Fatal("create event not received")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
