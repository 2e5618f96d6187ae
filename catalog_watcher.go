package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CatalogWatcherConfig configures template directory watching.
type CatalogWatcherConfig struct {
	Dir           string        `json:"dir"`
	DebounceDelay time.Duration `json:"debounceDelay"`
	// IgnorePatterns are filepath.Match patterns checked against the
	// base name of changed files.
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
}

// CatalogWatcher watches a directory of template JSON files and hot
// loads them into a TemplateManager. Existing catalog entries with the
// same id are replaced; new files are appended.
type CatalogWatcher struct {
	manager       *TemplateManager
	config        CatalogWatcherConfig
	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	pending       map[string]bool
	isRunning     bool
	stopChan      chan struct{}
	mu            sync.Mutex
	wg            sync.WaitGroup
}

// NewCatalogWatcher creates a watcher feeding the given manager.
func NewCatalogWatcher(manager *TemplateManager) *CatalogWatcher {
	return &CatalogWatcher{
		manager:  manager,
		pending:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}
}

// Start loads every template file already in the directory, then begins
// watching for changes.
func (cw *CatalogWatcher) Start(config CatalogWatcherConfig) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.isRunning {
		return fmt.Errorf("catalog watcher is already running")
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay * time.Millisecond
	}

	if err := cw.loadDir(config.Dir); err != nil {
		return err
	}
	cw.manager.eventBus.emit(EventCatalogReloaded, TemplateEvent{
		Type:      "reloaded",
		Timestamp: time.Now(),
		Source:    "watcher",
	})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(config.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch template directory: %w", err)
	}

	cw.config = config
	cw.watcher = watcher
	cw.isRunning = true
	cw.stopChan = make(chan struct{})

	cw.wg.Add(1)
	go func() {
		defer cw.wg.Done()
		cw.watchLoop()
	}()

	return nil
}

// Stop stops watching. Pending debounced loads are dropped.
func (cw *CatalogWatcher) Stop() error {
	cw.mu.Lock()

	if !cw.isRunning {
		cw.mu.Unlock()
		return nil
	}

	close(cw.stopChan)
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
		cw.debounceTimer = nil
	}
	cw.watcher.Close()
	cw.isRunning = false
	cw.mu.Unlock()

	cw.wg.Wait()

	cw.mu.Lock()
	cw.watcher = nil
	cw.mu.Unlock()

	return nil
}

// IsRunning reports whether the watcher is active.
func (cw *CatalogWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.isRunning
}

// loadDir loads every .json template in dir into the manager.
func (cw *CatalogWatcher) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := cw.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			cw.manager.eventBus.emit(EventError, err)
		}
	}
	return nil
}

func (cw *CatalogWatcher) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", path, err)
	}

	tpl, err := parseTemplate(data, ImportFormatJSON)
	if err != nil {
		return fmt.Errorf("template file %s: %w", path, err)
	}

	return cw.manager.PutTemplate(tpl)
}

func (cw *CatalogWatcher) watchLoop() {
	events := cw.watcher.Events
	errors := cw.watcher.Errors

	for {
		select {
		case <-cw.stopChan:
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if cw.shouldIgnore(event) {
				continue
			}
			cw.scheduleLoad(event.Name)

		case err, ok := <-errors:
			if !ok {
				return
			}
			cw.manager.eventBus.emit(EventError, err)
		}
	}
}

// shouldIgnore filters events that are not template file writes.
func (cw *CatalogWatcher) shouldIgnore(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return true
	}

	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return true
	}

	for _, pattern := range cw.config.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// scheduleLoad debounces bursts of file events into one load pass.
func (cw *CatalogWatcher) scheduleLoad(path string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.pending[path] = true

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.config.DebounceDelay, cw.flushPending)
}

func (cw *CatalogWatcher) flushPending() {
	cw.mu.Lock()
	if !cw.isRunning {
		cw.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(cw.pending))
	for path := range cw.pending {
		paths = append(paths, path)
	}
	cw.pending = make(map[string]bool)
	cw.mu.Unlock()

	for _, path := range paths {
		if err := cw.loadFile(path); err != nil {
			cw.manager.eventBus.emit(EventError, err)
		}
	}
}
