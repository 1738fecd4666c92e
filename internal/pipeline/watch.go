package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before a rerun.
const DefaultDebounce = 2 * time.Second

// Watch runs fn once, then again each time path changes and has been quiet
// for debounce. It returns nil when ctx is canceled. Errors from fn are
// logged and watching continues.
//
// The parent directory is watched rather than the file, so writers that
// replace the file by rename are seen too.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(context.Context) error) (err error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := logging.With("watch")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	run := func() {
		if runErr := fn(ctx); runErr != nil && ctx.Err() == nil {
			log.Error().Err(runErr).Msg("run failed")
		}
	}

	run()
	log.Info().Str("path", abs).Dur("debounce", debounce).Msg("watching for changes")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("op", event.Op.String()).Msg("change detected")
			timer.Reset(debounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(werr).Msg("file watcher error")
		case <-timer.C:
			log.Info().Str("path", abs).Msg("input changed, rerunning")
			run()
		}
	}
}
