package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces bursts of file events (editors and atomic
// renames produce several per save) into a single reload.
const defaultDebounce = 250 * time.Millisecond

// Watcher triggers a catalog reload when any dictionary, rule or merchant
// config file changes on disk. A failed reload is logged and the previous
// snapshot keeps serving.
type Watcher struct {
	catalog  *Catalog
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the catalog's configured paths.
func NewWatcher(c *Catalog, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		catalog:  c,
		logger:   logger.With("component", "catalog.watcher"),
		debounce: defaultDebounce,
	}
}

// Watch blocks until the context is cancelled, reloading the catalog after
// each debounced batch of file events.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addPaths(fsw); err != nil {
		return err
	}

	w.logger.Info("catalog watcher started",
		"dictionaries_dir", w.catalog.cfg.DictionariesDir,
		"rulesets_dir", w.catalog.cfg.RulesetsDir,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevantEvent(event) {
				continue
			}
			// New version directories must be watched too.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = fsw.Add(event.Name)
				}
			}
			w.logger.Debug("catalog file event", "path", event.Name, "op", event.Op.String())
			if timerArmed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			timerArmed = true

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("catalog watcher error", "error", err)

		case <-timer.C:
			timerArmed = false
			if err := w.catalog.Reload(); err != nil {
				w.logger.Error("catalog reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}

func (w *Watcher) addPaths(fsw *fsnotify.Watcher) error {
	if err := fsw.Add(w.catalog.cfg.DictionariesDir); err != nil {
		return fmt.Errorf("failed to watch dictionaries dir: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.catalog.cfg.MerchantConfigPath)); err != nil {
		return fmt.Errorf("failed to watch merchant config dir: %w", err)
	}
	// Rulesets are nested one level per version plus group subdirectories;
	// watch every directory under the root.
	err := filepath.WalkDir(w.catalog.cfg.RulesetsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch rulesets dir: %w", err)
	}
	return nil
}

func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return hasCatalogExtension(event.Name) || filepath.Ext(event.Name) == ""
}
