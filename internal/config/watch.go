package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"growth-wallet/internal/domain"
)

const defaultCatalogDebounce = 250 * time.Millisecond

// CatalogWatcher reloads a catalog file when it changes on disk.
// The parent directory is watched so editors that replace the file by rename
// are still seen.
type CatalogWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
}

// NewCatalogWatcher starts watching path. Close it via Run's return.
func NewCatalogWatcher(path string, logger *zap.Logger) (*CatalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogWatcher{path: abs, watcher: w, logger: logger, debounce: defaultCatalogDebounce}, nil
}

// Run delivers every successfully parsed version of the catalog to onChange
// until ctx is done. Files that fail to parse are logged and skipped.
func (cw *CatalogWatcher) Run(ctx context.Context, onChange func([]domain.Product)) error {
	defer cw.watcher.Close()

	// rapid saves collapse into one reload
	timer := time.NewTimer(cw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(cw.debounce)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Warn("catalog watcher error", zap.Error(err))

		case <-timer.C:
			products, err := LoadCatalog(cw.path)
			if err != nil {
				cw.logger.Warn("catalog reload failed", zap.String("path", cw.path), zap.Error(err))
				continue
			}
			cw.logger.Info("catalog reloaded", zap.String("path", cw.path), zap.Int("products", len(products)))
			onChange(products)
		}
	}
}
