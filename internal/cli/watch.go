package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/presentation/tui"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

// watch re-renders results after every settle and reloads the graph file when it changes on disk.
func watch(ctx context.Context, eng *playground.Engine, opts RunOptions, logger *slog.Logger) error {
	changes, err := watchFile(ctx, opts.GraphPath, logger)
	if err != nil {
		return err
	}

	tui.PrintBanner(opts.Output, playground.Version)
	printSystemMessage(opts.Output, "Watching '%s'. Press Ctrl+C to stop.", opts.GraphPath)

	dirty := true
	for {
		if dirty {
			if err := settle(ctx, eng, opts.Timeout); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("Graph did not settle", "err", err)
			}
			if err := report(eng, opts); err != nil {
				logger.Warn("Run finished with errors", "err", err)
			}
			dirty = false
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
		}

		g, err := codec.ReadGraph(opts.GraphPath)
		if err != nil {
			logger.Warn("Reload failed", "path", opts.GraphPath, "err", err)
			continue
		}
		if err := eng.Load(g); err != nil {
			logger.Warn("Reload rejected", "path", opts.GraphPath, "err", err)
			continue
		}
		logger.Info("Graph reloaded", "path", opts.GraphPath)
		printSystemMessage(opts.Output, "Reloaded '%s'.", opts.GraphPath)
		dirty = true
	}
}

// watchFile emits one value per burst of changes to path. The parent
// directory is watched so editors that save by rename are still seen.
// The channel closes when ctx is done.
func watchFile(ctx context.Context, path string, logger *slog.Logger) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(watchDebounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					timer.Reset(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error", "path", path, "err", err)
			case <-timer.C:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
