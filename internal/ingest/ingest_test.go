package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-analyzer/internal/ingest"
	"github.com/joseph-ayodele/invoice-analyzer/mocks"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func TestHelpers(t *testing.T) {
	assert.True(t, ingest.AllowedExt(".pdf"))
	assert.True(t, ingest.AllowedExt("PDF"))
	assert.False(t, ingest.AllowedExt(".png"))

	assert.True(t, ingest.IsHidden("/tmp/x/.invoice.pdf"))
	assert.False(t, ingest.IsHidden("/tmp/.x/invoice.pdf"))
	assert.False(t, ingest.IsHidden("."))

	assert.Equal(t, "invoice_18c2f.pdf", ingest.InvoiceFileName("18c2f"))
}

func TestEnsureFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, ingest.EnsureFolder(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Error(t, ingest.EnsureFolder("  "))
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "invoice_b2.pdf"))
	touch(t, filepath.Join(dir, "invoice_a1.PDF"))
	touch(t, filepath.Join(dir, ".invoice_hidden.pdf"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "archive", "invoice_old.pdf"))

	docs, err := ingest.ListDocuments(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, filepath.Join(dir, "invoice_a1.PDF"), docs[0].Path)
	assert.Equal(t, "b2", docs[1].ID)

	empty, err := ingest.ListDocuments(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ingest.ListDocuments(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "invoice_have.pdf"))

	store := new(mocks.MockMessageStore)
	store.On("Search", mock.Anything, "has:attachment").Return([]string{"have", "new", "nopdf", "broken"}, nil)
	store.On("Attachment", mock.Anything, "new").Return([]byte("%PDF-new"), nil)
	store.On("Attachment", mock.Anything, "nopdf").Return(nil, nil)
	store.On("Attachment", mock.Anything, "broken").Return(nil, errors.New("500 backend"))

	stats, err := ingest.NewDownloader(store, dir, nil).Download(context.Background(), "has:attachment")

	require.NoError(t, err)
	assert.Equal(t, ingest.DownloadStats{Found: 4, Downloaded: 1, Skipped: 1, NoPDF: 1, Failed: 1}, stats)
	store.AssertNotCalled(t, "Attachment", mock.Anything, "have")
	store.AssertExpectations(t)

	got, err := os.ReadFile(filepath.Join(dir, "invoice_new.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".download-")
	}
}

func TestDownload_SearchError(t *testing.T) {
	store := new(mocks.MockMessageStore)
	store.On("Search", mock.Anything, "q").Return(nil, errors.New("unauthorised"))

	_, err := ingest.NewDownloader(store, t.TempDir(), nil).Download(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search mailbox")
	store.AssertNotCalled(t, "Attachment", mock.Anything, mock.Anything)
}

func TestStartWatcher_Debounces(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Root: dir, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	touch(t, filepath.Join(dir, "invoice_1.pdf"))
	touch(t, filepath.Join(dir, "invoice_2.pdf"))
	touch(t, filepath.Join(dir, ".hidden.pdf"))
	touch(t, filepath.Join(dir, "notes.txt"))

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			for _, p := range batch {
				seen[filepath.Base(p)] = true
			}
		case err := <-errs:
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"invoice_1.pdf", "invoice_2.pdf"}, names)

	cancel()
	for range batches {
	}
	_, open := <-errs
	assert.False(t, open)
}

func TestStartWatcher_BadRoot(t *testing.T) {
	_, _, err := ingest.StartWatcher(context.Background(), ingest.WatchConfig{})
	assert.Error(t, err)

	_, _, err = ingest.StartWatcher(context.Background(), ingest.WatchConfig{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
