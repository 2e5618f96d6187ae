package engine

import (
	"testing"
	"time"
)

// storageBackends returns fresh instances of every in-package backend so
// the shared contract is tested once against each.
func storageBackends(t *testing.T) map[string]Storage {
	t.Helper()

	fileStorage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	return map[string]Storage{
		"file":   fileStorage,
		"memory": NewMemoryStorage(),
	}
}

func TestStorageReadWriteDelete(t *testing.T) {
	for name, storage := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			key := "documents:doc-1"
			payload := []byte(`{"id":"doc-1"}`)

			if _, err := storage.Read(key); err == nil {
				t.Error("reading a missing key succeeded")
			}

			if err := storage.Write(key, payload); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := storage.Read(key)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if string(got) != string(payload) {
				t.Errorf("Read = %s, want %s", got, payload)
			}

			if err := storage.Delete(key); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := storage.Read(key); err == nil {
				t.Error("key readable after delete")
			}
			if err := storage.Delete(key); err == nil {
				t.Error("deleting a missing key succeeded")
			}
		})
	}
}

func TestStorageList(t *testing.T) {
	for name, storage := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			storage.Write("documents:a", []byte("{}"))
			storage.Write("documents:b", []byte("{}"))
			storage.Write("templates:x", []byte("{}"))

			keys, err := storage.List("documents:")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(keys) != 2 {
				t.Errorf("List(documents:) = %v, want 2 keys", keys)
			}
			for _, key := range keys {
				if key != "documents:a" && key != "documents:b" {
					t.Errorf("unexpected key %q", key)
				}
			}
		})
	}
}

func TestStorageWatch(t *testing.T) {
	for name, storage := range storageBackends(t) {
		t.Run(name, func(t *testing.T) {
			updates := make(chan []byte, 4)
			unsub, err := storage.Watch("documents:w", func(data []byte) {
				updates <- data
			})
			if err != nil {
				t.Fatalf("Watch failed: %v", err)
			}

			storage.Write("documents:w", []byte("v1"))
			select {
			case data := <-updates:
				if string(data) != "v1" {
					t.Errorf("watched data = %s, want v1", data)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for watch notification")
			}

			// Writes to other keys don't notify this watcher.
			storage.Write("documents:other", []byte("x"))
			select {
			case data := <-updates:
				t.Errorf("received %s for an unrelated key", data)
			case <-time.After(50 * time.Millisecond):
			}

			unsub()
			storage.Write("documents:w", []byte("v2"))
			select {
			case data := <-updates:
				t.Errorf("received %s after unsubscribe", data)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestFileStorageKeyMapping(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}

	// Keys map to nested paths; List reverses the mapping.
	if err := fs.Write("documents:nested:doc", []byte("{}")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	keys, err := fs.List("documents:")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "documents:nested:doc" {
		t.Errorf("List = %v, want the original key", keys)
	}
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	ms := NewMemoryStorage()
	original := []byte("unchanged")
	ms.Write("k", original)

	got, _ := ms.Read("k")
	got[0] = 'X'

	again, _ := ms.Read("k")
	if string(again) != "unchanged" {
		t.Error("mutating a read result leaked into storage")
	}

	original[0] = 'Y'
	again, _ = ms.Read("k")
	if string(again) != "unchanged" {
		t.Error("mutating the written slice leaked into storage")
	}
}

func TestStorageKeys(t *testing.T) {
	if got := Keys.Document("d1"); got != "documents:d1" {
		t.Errorf("Document key = %q", got)
	}
	if got := Keys.Template("t1"); got != "templates:t1" {
		t.Errorf("Template key = %q", got)
	}
	if got := Keys.DesignSystem("s1"); got != "designsystems:s1" {
		t.Errorf("DesignSystem key = %q", got)
	}
}
