package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DocumentStore persists canvas documents and design systems through a
// Storage backend. The engine itself never touches persistence; this is
// the standard caller-side helper.
type DocumentStore struct {
	storage Storage
}

// NewDocumentStore creates a store over the given backend.
func NewDocumentStore(storage Storage) *DocumentStore {
	return &DocumentStore{storage: storage}
}

// SaveDocument persists a document under its id.
func (s *DocumentStore) SaveDocument(doc *CanvasDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document must have an id")
	}
	if err := SaveJSON(s.storage, Keys.Document(doc.ID), doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// LoadDocument loads a document by id.
func (s *DocumentStore) LoadDocument(id string) (*CanvasDocument, error) {
	var doc CanvasDocument
	if err := LoadJSON(s.storage, Keys.Document(id), &doc); err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("document %q not found", id)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a persisted document.
func (s *DocumentStore) DeleteDocument(id string) error {
	if err := s.storage.Delete(Keys.Document(id)); err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("document %q not found", id)
		}
		return err
	}
	return nil
}

// ListDocuments returns the ids of all persisted documents.
func (s *DocumentStore) ListDocuments() ([]string, error) {
	keys, err := s.storage.List(Keys.DocumentPrefix())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, Keys.DocumentPrefix()))
	}
	return ids, nil
}

// SaveDesignSystem persists a design system under its id.
func (s *DocumentStore) SaveDesignSystem(ds *DesignSystem) error {
	if ds == nil || ds.ID == "" {
		return fmt.Errorf("design system must have an id")
	}
	if err := SaveJSON(s.storage, Keys.DesignSystem(ds.ID), ds); err != nil {
		return fmt.Errorf("failed to save design system: %w", err)
	}
	return nil
}

// LoadDesignSystem loads a design system by id.
func (s *DocumentStore) LoadDesignSystem(id string) (*DesignSystem, error) {
	var ds DesignSystem
	if err := LoadJSON(s.storage, Keys.DesignSystem(id), &ds); err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("design system %q not found", id)
		}
		return nil, fmt.Errorf("failed to load design system: %w", err)
	}
	return &ds, nil
}

// WatchDocument invokes handler whenever the persisted document changes
// in the backend. Returns an unsubscribe function.
func (s *DocumentStore) WatchDocument(id string, handler func(*CanvasDocument)) (func(), error) {
	return s.storage.Watch(Keys.Document(id), func(data []byte) {
		var doc CanvasDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return
		}
		handler(&doc)
	})
}
