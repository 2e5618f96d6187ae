package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// coreTemplateIDs is the fixed allow-list backing PopularTemplates.
var coreTemplateIDs = map[string]bool{
	"filesystem": true,
	"github":     true,
	"memory":     true,
	"fetch":      true,
}

// TemplateManager owns a catalog of server templates, validates
// user-supplied configuration against per-field rules, and instantiates
// concrete server configurations. Each manager owns its catalog; there
// is no shared global list.
type TemplateManager struct {
	mu       sync.RWMutex
	catalog  []*ServerTemplate
	byID     map[string]*ServerTemplate
	eventBus *eventBus
}

// NewTemplateManager creates a manager seeded with the given templates.
// Duplicates by id are dropped, first occurrence wins.
func NewTemplateManager(builtin ...*ServerTemplate) *TemplateManager {
	m := &TemplateManager{
		byID:     make(map[string]*ServerTemplate),
		eventBus: newEventBus(),
	}
	for _, tpl := range builtin {
		if tpl == nil || tpl.ID == "" {
			continue
		}
		if _, exists := m.byID[tpl.ID]; exists {
			continue
		}
		tpl = copyTemplate(tpl)
		m.catalog = append(m.catalog, tpl)
		m.byID[tpl.ID] = tpl
	}
	return m
}

// AllTemplates returns the catalog in insertion order. Accessors return
// copies; mutating a returned template never touches the catalog.
func (m *TemplateManager) AllTemplates() []*ServerTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ServerTemplate, len(m.catalog))
	for i, tpl := range m.catalog {
		out[i] = copyTemplate(tpl)
	}
	return out
}

// Template returns the template with the given id, or false if unknown.
func (m *TemplateManager) Template(id string) (*ServerTemplate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return copyTemplate(tpl), true
}

// TemplatesByCategory returns every template in the given category.
func (m *TemplateManager) TemplatesByCategory(category string) []*ServerTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ServerTemplate
	for _, tpl := range m.catalog {
		if tpl.Category == category {
			out = append(out, copyTemplate(tpl))
		}
	}
	return out
}

// Categories returns the deduplicated category set. Order is not
// guaranteed; it is sorted here only to be deterministic.
func (m *TemplateManager) Categories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, tpl := range m.catalog {
		if tpl.Category != "" && !seen[tpl.Category] {
			seen[tpl.Category] = true
			out = append(out, tpl.Category)
		}
	}
	sort.Strings(out)
	return out
}

// SearchTemplates performs a case-insensitive substring match across
// name, description, tags, and category; a template matches if any
// field matches.
func (m *TemplateManager) SearchTemplates(query string) []*ServerTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	var out []*ServerTemplate
	for _, tpl := range m.catalog {
		if templateMatches(tpl, q) {
			out = append(out, copyTemplate(tpl))
		}
	}
	return out
}

func templateMatches(tpl *ServerTemplate, q string) bool {
	if strings.Contains(strings.ToLower(tpl.Name), q) ||
		strings.Contains(strings.ToLower(tpl.Description), q) ||
		strings.Contains(strings.ToLower(tpl.Category), q) {
		return true
	}
	for _, tag := range tpl.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// TemplatesByDifficulty returns every template with the given
// difficulty.
func (m *TemplateManager) TemplatesByDifficulty(difficulty string) []*ServerTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ServerTemplate
	for _, tpl := range m.catalog {
		if tpl.Difficulty == difficulty {
			out = append(out, copyTemplate(tpl))
		}
	}
	return out
}

// PopularTemplates returns beginner templates plus the fixed core set.
func (m *TemplateManager) PopularTemplates() []*ServerTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ServerTemplate
	for _, tpl := range m.catalog {
		if tpl.Difficulty == "beginner" || coreTemplateIDs[tpl.ID] {
			out = append(out, copyTemplate(tpl))
		}
	}
	return out
}

// ValidateConfig validates a config against the template's declared
// fields. All errors are collected in one pass; validation never stops
// at the first problem. Warnings are advisory and do not affect Valid.
func (m *TemplateManager) ValidateConfig(templateID string, config map[string]any) *ValidationResult {
	m.mu.RLock()
	tpl, ok := m.byID[templateID]
	m.mu.RUnlock()

	result := &ValidationResult{Valid: true}
	if !ok {
		result.addError("template", fmt.Sprintf("%s: %q", ErrTemplateNotFound, templateID), CodeTemplateNotFound)
		return result
	}

	for _, field := range tpl.ConfigFields {
		value, supplied := config[field.Name]

		if isEmptyValue(value) || !supplied {
			if field.Required {
				result.addError(field.Name, fmt.Sprintf("%s is required", fieldLabel(field)), CodeRequiredField)
			}
			// Optional empty fields skip type and rule checks entirely.
			continue
		}

		validator, ok := fieldValidators[field.Type]
		if !ok {
			continue
		}

		if ferr := validator.Check(field, value); ferr != nil {
			result.Errors = append(result.Errors, *ferr)
			result.Valid = false
			continue // pattern/min/max are not evaluated after a type failure
		}

		if ferr := checkRules(field, value); ferr != nil {
			result.Errors = append(result.Errors, *ferr)
			result.Valid = false
		}

		for _, w := range validator.Warnings(field, value) {
			result.addWarning(w)
		}
	}

	return result
}

// InstantiationError carries the full validation result of a failed
// Instantiate call.
type InstantiationError struct {
	Result *ValidationResult
}

func (e *InstantiationError) Error() string {
	msgs := make([]string, len(e.Result.Errors))
	for i, ferr := range e.Result.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", ferr.Field, ferr.Message)
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Instantiate validates the config and, on success, builds a concrete
// server from the template skeleton: defaults merged under user values
// (user wins, shallow), then the auth pass which is authoritative for
// auth-named keys. An invalid config returns an *InstantiationError and
// no partial output. Warnings accumulated during validation are
// returned either way.
func (m *TemplateManager) Instantiate(templateID string, config map[string]any, serverID string) (instance *ServerInstance, warnings []string, err error) {
	result := m.ValidateConfig(templateID, config)
	if !result.Valid {
		return nil, result.Warnings, &InstantiationError{Result: result}
	}

	// Construction works over caller-supplied maps; recover unexpected
	// faults into a generic instantiation error instead of panicking
	// through the caller.
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("instantiation failed: %v", r)
		}
	}()

	m.mu.RLock()
	tpl := m.byID[templateID]
	m.mu.RUnlock()

	id := tpl.Server.ID
	if serverID != "" {
		id = serverID
	}

	merged := copyValueMap(tpl.Server.DefaultConfig)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range config {
		merged[k] = copyValue(v)
	}
	// The auth pass runs last and re-overwrites any auth-named keys.
	for _, auth := range tpl.Server.RequiredAuth {
		if v, ok := config[auth.Name]; ok {
			merged[auth.Name] = copyValue(v)
		}
	}

	instance = &ServerInstance{
		ID:           id,
		TemplateID:   tpl.ID,
		Name:         tpl.Name,
		Enabled:      true,
		ServerConfig: copyServerConfig(tpl.Server.ServerConfig),
		Config:       merged,
		CreatedAt:    time.Now(),
	}
	return instance, result.Warnings, nil
}

// ExportTemplate serializes one template, or returns false if unknown.
func (m *TemplateManager) ExportTemplate(id string, format ExportFormat) ([]byte, bool, error) {
	m.mu.RLock()
	tpl, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	switch format {
	case ExportFormatJSON:
		data, err := json.MarshalIndent(tpl, "", "  ")
		if err != nil {
			return nil, true, fmt.Errorf("failed to marshal template: %w", err)
		}
		return data, true, nil

	case ExportFormatYAML:
		data, err := yaml.Marshal(tpl)
		if err != nil {
			return nil, true, fmt.Errorf("failed to marshal template: %w", err)
		}
		return data, true, nil

	default:
		return nil, true, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ImportTemplate parses a template and appends it to the catalog.
// Parse failures, missing mandatory fields (id/name/server), and
// duplicate ids all fail with the catalog left unchanged. Imported
// templates are indistinguishable from built-in ones.
func (m *TemplateManager) ImportTemplate(data []byte, format ImportFormat) (*ServerTemplate, error) {
	tpl, err := parseTemplate(data, format)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[tpl.ID]; exists {
		return nil, fmt.Errorf("%s: %q", ErrDuplicateTemplate, tpl.ID)
	}

	m.catalog = append(m.catalog, tpl)
	m.byID[tpl.ID] = tpl

	m.eventBus.emit(EventTemplateImported, TemplateEvent{
		Type:       "imported",
		TemplateID: tpl.ID,
		Timestamp:  time.Now(),
		Source:     "user",
	})

	return copyTemplate(tpl), nil
}

// PutTemplate inserts or replaces a template by id. Used by the catalog
// watcher for hot reloads, where replacing is the point.
func (m *TemplateManager) PutTemplate(tpl *ServerTemplate) error {
	if err := checkTemplateShape(tpl); err != nil {
		return err
	}
	tpl = copyTemplate(tpl)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[tpl.ID]; exists {
		for i, cur := range m.catalog {
			if cur.ID == tpl.ID {
				m.catalog[i] = tpl
				break
			}
		}
	} else {
		m.catalog = append(m.catalog, tpl)
	}
	m.byID[tpl.ID] = tpl

	m.eventBus.emit(EventTemplateUpdated, TemplateEvent{
		Type:       "updated",
		TemplateID: tpl.ID,
		Timestamp:  time.Now(),
		Source:     "watcher",
	})

	return nil
}

// OnCatalogChange subscribes to catalog changes. The returned function
// unsubscribes.
func (m *TemplateManager) OnCatalogChange(handler TemplateEventHandler) func() {
	sub1 := m.eventBus.on(EventTemplateImported, handler)
	sub2 := m.eventBus.on(EventTemplateUpdated, handler)
	sub3 := m.eventBus.on(EventCatalogReloaded, handler)
	return func() {
		sub1()
		sub2()
		sub3()
	}
}

func parseTemplate(data []byte, format ImportFormat) (*ServerTemplate, error) {
	var tpl ServerTemplate
	switch format {
	case ImportFormatJSON:
		if err := json.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMalformedTemplate, err)
		}
	case ImportFormatYAML:
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMalformedTemplate, err)
		}
	default:
		return nil, fmt.Errorf("unsupported import format: %s", format)
	}

	if err := checkTemplateShape(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// checkTemplateShape enforces the mandatory template fields.
func checkTemplateShape(tpl *ServerTemplate) error {
	if tpl == nil {
		return fmt.Errorf("template cannot be nil")
	}
	if tpl.ID == "" {
		return fmt.Errorf("template is missing mandatory field: id")
	}
	if tpl.Name == "" {
		return fmt.Errorf("template is missing mandatory field: name")
	}
	if tpl.Server.ID == "" {
		return fmt.Errorf("template is missing mandatory field: server.id")
	}
	return nil
}
