package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

// KeymapReloader keeps the button registry in sync with the keymap file.
// A reload that fails leaves the previous keymap active.
type KeymapReloader struct {
	loader        *keymap.Loader
	registry      *keymap.Registry
	logger        logger.Logger
	interval      time.Duration
	watch         bool
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewKeymapReloader creates a new keymap reloader. An interval of 0 disables
// the periodic reload; watch enables reload on file change.
func NewKeymapReloader(
	keymapFile string,
	registry *keymap.Registry,
	log logger.Logger,
	interval time.Duration,
	watch bool,
	manualTrigger chan struct{},
) *KeymapReloader {
	return &KeymapReloader{
		loader:        keymap.NewLoader(keymapFile),
		registry:      registry,
		logger:        log,
		interval:      interval,
		watch:         watch,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the keymap once, then reloads it on tick, on file change and
// on manual trigger.
func (kr *KeymapReloader) Start(ctx context.Context) error {
	if err := kr.Reload(ctx); err != nil {
		return fmt.Errorf("initial keymap reload failed: %w", err)
	}

	var tick <-chan time.Time
	if kr.interval > 0 {
		ticker := time.NewTicker(kr.interval)
		tick = ticker.C
		go func() {
			<-kr.stopCh
			ticker.Stop()
		}()
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if kr.watch && kr.loader.Path() != "" {
		watcher, err := kr.newWatcher()
		if err != nil {
			kr.logger.Warn("keymap file watch disabled", logger.Error(err))
		} else {
			events, errs = watcher.Events, watcher.Errors
			go func() {
				<-kr.stopCh
				_ = watcher.Close()
			}()
		}
	}

	go func() {
		for {
			select {
			case <-tick:
				kr.reloadLogged(ctx)
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if kr.concerns(ev) {
					kr.logger.Debug("keymap file changed", logger.String("op", ev.Op.String()))
					kr.reloadLogged(ctx)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				kr.logger.Warn("keymap watcher error", logger.Error(err))
			case <-kr.manualTrigger:
				kr.logger.Info("manual keymap reload triggered")
				kr.reloadLogged(ctx)
			case <-kr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (kr *KeymapReloader) Stop() {
	kr.stopOnce.Do(func() { close(kr.stopCh) })
}

// Reload parses the keymap file and swaps it into the registry
func (kr *KeymapReloader) Reload(_ context.Context) error {
	bindings, err := kr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load keymap: %w", err)
	}

	source := kr.loader.Path()
	if source == "" {
		source = "default"
	}
	kr.registry.Update(bindings, source)

	kr.logger.Info("keymap loaded",
		logger.String("source", source),
		logger.Int("buttons", len(bindings)))
	return nil
}

func (kr *KeymapReloader) reloadLogged(ctx context.Context) {
	if err := kr.Reload(ctx); err != nil {
		kr.logger.Error("failed to reload keymap, keeping previous one",
			logger.Error(err))
	}
}

// newWatcher watches the parent directory: editors often replace the file
// with a rename, which drops a watch set on the file itself.
func (kr *KeymapReloader) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(kr.loader.Path())
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return watcher, nil
}

func (kr *KeymapReloader) concerns(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(kr.loader.Path()) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
