package dashboard

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Zachdehooge/observatorio/internal/fetcher"
)

// watchSettle coalesces the burst of events an editor or producer emits
// while rewriting a fixture.
const watchSettle = 250 * time.Millisecond

// Watch runs a cycle whenever a fixture in dir is written, created or
// renamed into place. It blocks until ctx is cancelled.
func (r *Refresher) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.log.Info().Str("dir", dir).Msg("watching fixtures for changes")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isFixture(ev.Name) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("fixture changed")
			pending = time.After(watchSettle)
		case <-pending:
			pending = nil
			_, _ = r.Refresh(ctx, TriggerWatch)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Error().Err(err).Msg("fixture watcher error")
		}
	}
}

func isFixture(path string) bool {
	base := filepath.Base(path)
	if base == fetcher.BoundariesFile {
		return true
	}
	for _, name := range fetcher.FixtureFiles {
		if base == name {
			return true
		}
	}
	return false
}
