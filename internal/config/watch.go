package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/models"
)

// WatchCriteria monitors path and calls onChange with the thresholds the
// file sets each time it is saved. It runs until ctx is cancelled.
//
// The containing directory is watched, so saves that replace the file by
// rename keep being seen. A reload that fails (bad YAML, negative threshold)
// is logged and skipped.
func WatchCriteria(ctx context.Context, path string, log *logger.Logger, onChange func(models.CriteriaUpdate)) error {
	// Fail early on a missing file rather than watching for it to appear.
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: watch criteria: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log.Info("config: watching criteria", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			update, err := LoadCriteriaUpdate(path)
			if err != nil {
				// A rename away from path leaves nothing to read until the
				// replacement lands as a Create.
				log.Warn("config: criteria reload skipped", "path", path, "err", err)
				continue
			}

			log.Info("config: criteria reloaded", "path", path)
			onChange(update)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config: watcher error", "err", err)
		}
	}
}
