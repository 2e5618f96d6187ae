package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStorage implements Storage using the filesystem. Writes are
// atomic (temp file + rename).
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
	watchers *watcherSet
}

// NewFileStorage creates a new file-based storage rooted at basePath.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if strings.HasPrefix(basePath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, basePath[1:])
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{
		basePath: basePath,
		watchers: newWatcherSet(),
	}, nil
}

// Read reads data from storage
func (fs *FileStorage) Read(key string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("key not found: %s", key)
		}
		return nil, err
	}
	return data, nil
}

// Write writes data to storage
func (fs *FileStorage) Write(key string, data []byte) error {
	fs.mu.Lock()
	path := fs.keyToPath(key)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fs.mu.Unlock()
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		fs.mu.Unlock()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		fs.mu.Unlock()
		return fmt.Errorf("failed to rename file: %w", err)
	}
	fs.mu.Unlock()

	fs.watchers.notify(key, data)
	return nil
}

// Delete removes data from storage
func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.keyToPath(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("key not found: %s", key)
		}
		return err
	}
	return nil
}

// List lists keys with given prefix
func (fs *FileStorage) List(prefix string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var keys []string
	err := filepath.Walk(fs.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		relPath, err := filepath.Rel(fs.basePath, path)
		if err != nil {
			return err
		}
		if key := fs.pathToKey(relPath); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})

	return keys, err
}

// Watch watches for changes to a key
func (fs *FileStorage) Watch(key string, handler func([]byte)) (func(), error) {
	return fs.watchers.add(key, handler), nil
}

// BasePath returns the base path of the file storage
func (fs *FileStorage) BasePath() string {
	return fs.basePath
}

// keyToPath converts storage key to filesystem path. Keys use : as the
// hierarchy separator.
func (fs *FileStorage) keyToPath(key string) string {
	parts := strings.Split(key, ":")
	path := filepath.Join(fs.basePath, filepath.Join(parts...))
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	return path
}

func (fs *FileStorage) pathToKey(relPath string) string {
	relPath = strings.TrimSuffix(relPath, ".json")
	return strings.ReplaceAll(relPath, string(filepath.Separator), ":")
}

// MemoryStorage implements Storage in memory
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers *watcherSet
}

// NewMemoryStorage creates a new memory-based storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[string][]byte),
		watchers: newWatcherSet(),
	}
}

// Read reads data from memory
func (ms *MemoryStorage) Read(key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.data[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}

	// Return copy to prevent modification
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Write writes data to memory
func (ms *MemoryStorage) Write(key string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	ms.mu.Lock()
	ms.data[key] = stored
	ms.mu.Unlock()

	ms.watchers.notify(key, stored)
	return nil
}

// Delete removes data from memory
func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.data[key]; !ok {
		return fmt.Errorf("key not found: %s", key)
	}
	delete(ms.data, key)
	return nil
}

// List lists keys with given prefix
func (ms *MemoryStorage) List(prefix string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var keys []string
	for key := range ms.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Watch watches for changes to a key
func (ms *MemoryStorage) Watch(key string, handler func([]byte)) (func(), error) {
	return ms.watchers.add(key, handler), nil
}

// watcherSet tracks per-key change handlers with stable subscription
// ids, shared by the storage backends.
type watcherSet struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func([]byte)
}

func newWatcherSet() *watcherSet {
	return &watcherSet{subs: make(map[string]map[int]func([]byte))}
}

func (ws *watcherSet) add(key string, handler func([]byte)) func() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.subs[key] == nil {
		ws.subs[key] = make(map[int]func([]byte))
	}
	id := ws.nextID
	ws.nextID++
	ws.subs[key][id] = handler

	return func() {
		ws.mu.Lock()
		defer ws.mu.Unlock()

		delete(ws.subs[key], id)
		if len(ws.subs[key]) == 0 {
			delete(ws.subs, key)
		}
	}
}

func (ws *watcherSet) notify(key string, data []byte) {
	ws.mu.Lock()
	handlers := make([]func([]byte), 0, len(ws.subs[key]))
	for _, h := range ws.subs[key] {
		handlers = append(handlers, h)
	}
	ws.mu.Unlock()

	for _, handler := range handlers {
		go handler(data)
	}
}

// StorageKeys defines standard storage keys
type StorageKeys struct{}

var Keys = StorageKeys{}

func (StorageKeys) Document(id string) string {
	return fmt.Sprintf("documents:%s", id)
}

func (StorageKeys) DocumentPrefix() string {
	return "documents:"
}

func (StorageKeys) Template(id string) string {
	return fmt.Sprintf("templates:%s", id)
}

func (StorageKeys) TemplatePrefix() string {
	return "templates:"
}

func (StorageKeys) DesignSystem(id string) string {
	return fmt.Sprintf("designsystems:%s", id)
}

func (StorageKeys) DesignSystemPrefix() string {
	return "designsystems:"
}

// LoadJSON loads and unmarshals JSON data
func LoadJSON(storage Storage, key string, v any) error {
	data, err := storage.Read(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveJSON marshals and saves JSON data
func SaveJSON(storage Storage, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return storage.Write(key, data)
}

// isNotFoundError checks if an error is a "not found" error
func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
