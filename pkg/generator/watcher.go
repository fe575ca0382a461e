package generator

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/blimu-dev/elmgen/pkg/config"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last change
// before regenerating.
const DefaultDebounce = 300 * time.Millisecond

// Watcher regenerates the modules of a config file whenever the config or
// its local spec document changes.
type Watcher struct {
	service    *Service
	configPath string
	onResult   func([]Result, error)
	debounce   time.Duration

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
	timer *time.Timer

	// runMu serializes regenerations.
	runMu sync.Mutex
}

// NewWatcher creates a watcher for configPath. onResult receives the outcome
// of every regeneration, including the initial one.
func NewWatcher(service *Service, configPath string, onResult func([]Result, error)) (*Watcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		service:    service,
		configPath: abs,
		onResult:   onResult,
		debounce:   DefaultDebounce,
		watcher:    fw,
		files:      make(map[string]bool),
		dirs:       make(map[string]bool),
	}
	if err := w.watch(abs); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run generates once, then regenerates on changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.regenerate()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.watched(event.Name) {
				continue
			}
			w.service.logger.Debug("watcher detected change",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.service.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// watch adds file to the watched set. Directories are watched rather than
// files so that editors replacing a file by rename are still seen.
func (w *Watcher) watch(file string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[file] = true
	dir := filepath.Dir(file)
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.regenerate)
}

func (w *Watcher) regenerate() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	results, err := w.generate()
	if err != nil {
		w.service.logger.Error("regeneration failed", zap.Error(err))
	}
	if w.onResult != nil {
		w.onResult(results, err)
	}
}

func (w *Watcher) generate() ([]Result, error) {
	cfg, err := config.Load(w.configPath)
	if err != nil {
		return nil, err
	}
	if !config.IsURL(cfg.Spec) {
		if err := w.watch(cfg.Spec); err != nil {
			return nil, err
		}
	}
	return w.service.GenerateFromConfig(cfg, "")
}
