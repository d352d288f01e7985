package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Root     string        // working folder, not recursive
	Debounce time.Duration // coalesce rapid create/write bursts into one batch
	Logger   *slog.Logger
}

// StartWatcher emits a batch of PDF paths each time the folder settles after changes.
// Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan []string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		logger.Error("ingest.watch.start_failed", "error", "no root provided")
		return nil, nil, errors.New("no root provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Root); err != nil {
		logger.Error("ingest.watch.add_failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	batches := make(chan []string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(batches)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		var (
			pending = map[string]struct{}{}
			timer   *time.Timer
			fire    = make(chan struct{}, 1)
		)
		flush := func() {
			if len(pending) == 0 {
				return
			}
			out := make([]string, 0, len(pending))
			for p := range pending {
				out = append(out, p)
			}
			pending = map[string]struct{}{}

			select {
			case batches <- out:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case <-fire:
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				logger.Debug("ingest.watch.event", "path", e.Name, "op", e.Op.String())

				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.Debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return batches, errCh, nil
}
