package data

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/model"
	"github.com/fsnotify/fsnotify"
)

// Source hands out the current production snapshot. Callers take one
// snapshot per turn and never see it change underneath them.
type Source interface {
	Snapshot() *model.Snapshot
}

type staticSource struct {
	snap *model.Snapshot
}

// NewStaticSource always returns snap.
func NewStaticSource(snap *model.Snapshot) Source {
	return &staticSource{snap: snap}
}

func (s *staticSource) Snapshot() *model.Snapshot {
	return s.snap
}

// FileSource serves a snapshot loaded from a JSON file and swaps in a new
// one when the file changes.
type FileSource struct {
	path     string
	current  atomic.Pointer[model.Snapshot]
	debounce time.Duration
}

// OpenFile loads path and returns a FileSource serving it.
func OpenFile(path string) (*FileSource, error) {
	s := &FileSource{path: path, debounce: 250 * time.Millisecond}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) Snapshot() *model.Snapshot {
	return s.current.Load()
}

// Reload re-reads the file. On failure the previous snapshot stays in place.
func (s *FileSource) Reload() error {
	snap, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.current.Store(snap)
	return nil
}

// Watch reloads the snapshot whenever the data file is written or replaced.
// It blocks until ctx is done.
func (s *FileSource) Watch(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "factoryops.data.watcher"})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and SaveFile replace the file by rename.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	slog.InfoContext(ctx, "watching production data", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := s.Reload(); err != nil {
				slog.WarnContext(ctx, "production data reload failed, keeping previous snapshot", "error", err)
				continue
			}
			snap := s.Snapshot()
			slog.InfoContext(ctx, "production data reloaded",
				"start_date", snap.StartDate,
				"end_date", snap.EndDate,
				"days", len(snap.Production))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "file watcher error", "error", err)
		}
	}
}
