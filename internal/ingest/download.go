package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// MessageStore is a mailbox that can be searched for receipt attachments.
type MessageStore interface {
	Search(ctx context.Context, query string) ([]string, error)
	// Attachment returns the first PDF attached to the message, or nil if it has none.
	Attachment(ctx context.Context, id string) ([]byte, error)
}

// DownloadStats counts what one download pass did.
type DownloadStats struct {
	Found      int
	Downloaded int
	Skipped    int
	NoPDF      int
	Failed     int
}

// Downloader saves mailbox attachments into the working folder as invoice_<id>.pdf.
type Downloader struct {
	store  MessageStore
	dir    string
	logger *slog.Logger
}

func NewDownloader(store MessageStore, dir string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{store: store, dir: dir, logger: logger}
}

// Download fetches every matching message not already on disk.
// A failing message is logged and counted; only search errors abort the pass.
func (d *Downloader) Download(ctx context.Context, query string) (DownloadStats, error) {
	var stats DownloadStats
	start := time.Now()

	if err := EnsureFolder(d.dir); err != nil {
		return stats, err
	}

	ids, err := d.store.Search(ctx, query)
	if err != nil {
		return stats, fmt.Errorf("search mailbox: %w", err)
	}
	stats.Found = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		path := filepath.Join(d.dir, InvoiceFileName(id))
		if _, err := os.Stat(path); err == nil {
			stats.Skipped++
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("ingest.download.stat_failed", "path", path, "error", err)
		}

		data, err := d.store.Attachment(ctx, id)
		if err != nil {
			stats.Failed++
			d.logger.Warn("ingest.download.failed", "message_id", id, "error", err)
			continue
		}
		if len(data) == 0 {
			stats.NoPDF++
			continue
		}
		if err := writeFileAtomic(path, data); err != nil {
			stats.Failed++
			d.logger.Warn("ingest.download.write_failed", "path", path, "error", err)
			continue
		}
		stats.Downloaded++
		d.logger.Debug("ingest.download.saved", "message_id", id, "path", path, "bytes", len(data))
	}

	d.logger.Info("ingest.download.done",
		"found", stats.Found,
		"downloaded", stats.Downloaded,
		"skipped", stats.Skipped,
		"no_pdf", stats.NoPDF,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
