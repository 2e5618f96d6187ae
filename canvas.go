package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// canvasEngine is the concrete implementation of CanvasEngine
type canvasEngine struct {
	doc          *CanvasDocument
	designSystem *DesignSystem
	history      *history
	eventBus     *eventBus
	mu           sync.RWMutex
}

// NewCanvasEngine creates a new engine instance owning a fresh document.
func NewCanvasEngine(opts ...Option) (CanvasEngine, error) {
	cfg := &engineConfig{
		name:       DefaultDocumentName,
		width:      DefaultCanvasWidth,
		height:     DefaultCanvasHeight,
		maxHistory: DefaultMaxHistory,
	}

	for _, opt := range opts {
		if opt != nil {
			if err := opt(cfg); err != nil {
				return nil, err
			}
		}
	}

	// Copy the seed document so a caller retaining the pointer cannot
	// mutate engine state behind the mutex.
	var doc *CanvasDocument
	if cfg.document != nil {
		doc = copyDocument(cfg.document)
	}
	if doc == nil {
		doc = &CanvasDocument{
			ID:               uuid.New().String(),
			Name:             cfg.name,
			Width:            cfg.width,
			Height:           cfg.height,
			BackgroundColor:  "#ffffff",
			Elements:         []CanvasElement{},
			SelectedElements: []string{},
			Grid: GridSettings{
				Enabled: true,
				Size:    DefaultGridSize,
				Snap:    false,
			},
			Guides: GuideSettings{
				Enabled: true,
				Smart:   true,
			},
		}
	}
	if cfg.grid != nil {
		doc.Grid = *cfg.grid
	}

	return &canvasEngine{
		doc:      doc,
		history:  newHistory(cfg.maxHistory, doc),
		eventBus: newEventBus(),
	}, nil
}

// GetState returns a defensive copy of the current document.
func (e *canvasEngine) GetState() *CanvasDocument {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return copyDocument(e.doc)
}

// SetState merges the patch into the document and pushes a history
// snapshot unconditionally, even when the merge is a no-op. Callers are
// responsible for avoiding vacuous calls.
func (e *canvasEngine) SetState(patch StatePatch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.Name != nil {
		e.doc.Name = *patch.Name
	}
	if patch.Width != nil {
		e.doc.Width = *patch.Width
	}
	if patch.Height != nil {
		e.doc.Height = *patch.Height
	}
	if patch.BackgroundColor != nil {
		e.doc.BackgroundColor = *patch.BackgroundColor
	}
	if patch.Grid != nil {
		e.doc.Grid = *patch.Grid
	}
	if patch.Guides != nil {
		e.doc.Guides = *patch.Guides
	}
	if patch.DesignSystemID != nil {
		e.doc.DesignSystemID = *patch.DesignSystemID
	}

	e.history.push(e.doc)
	e.emitChange(EventDocumentChanged, "")
}

// AddElement constructs an element from the spec, assigns it a fresh id,
// resolves its style against the loaded design system, snaps its
// position if grid snapping is on, and appends it topmost in z-order.
func (e *canvasEngine) AddElement(spec ElementSpec) *CanvasElement {
	e.mu.Lock()
	defer e.mu.Unlock()

	el := CanvasElement{
		ID:             uuid.New().String(),
		X:              spec.X,
		Y:              spec.Y,
		Width:          spec.Width,
		Height:         spec.Height,
		Component:      spec.Component,
		Variant:        spec.Variant,
		Style:          copyValueMap(spec.Style),
		TokenOverrides: copyValueMap(spec.TokenOverrides),
		Parent:         spec.Parent,
	}

	if e.snapEnabled() {
		el.X = e.snap(el.X)
		el.Y = e.snap(el.Y)
	}

	// Variant defaults under explicit style values; explicit wins on
	// collision, shallow merge only.
	if defaults, ok := e.resolveVariantStyle(el.Component, el.Variant); ok {
		el.Style = mergeShallow(defaults, spec.Style)
	}

	e.doc.Elements = append(e.doc.Elements, el)
	e.history.push(e.doc)
	e.emitChange(EventElementAdded, el.ID)

	out := copyElement(el)
	return &out
}

// UpdateElement applies a partial update to the element. Unknown ids and
// cycle-forming parent updates return false without mutating anything.
func (e *canvasEngine) UpdateElement(id string, update ElementUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.updateElementLocked(id, update)
}

func (e *canvasEngine) updateElementLocked(id string, update ElementUpdate) bool {
	idx := e.indexOf(id)
	if idx < 0 {
		return false
	}

	if update.Parent != nil && *update.Parent != "" && e.wouldFormCycle(id, *update.Parent) {
		return false
	}

	el := &e.doc.Elements[idx]

	if update.X != nil {
		el.X = *update.X
		if e.snapEnabled() {
			el.X = e.snap(el.X)
		}
	}
	if update.Y != nil {
		el.Y = *update.Y
		if e.snapEnabled() {
			el.Y = e.snap(el.Y)
		}
	}
	if update.Width != nil {
		el.Width = *update.Width
	}
	if update.Height != nil {
		el.Height = *update.Height
	}
	if update.Component != nil {
		el.Component = *update.Component
	}
	if update.Variant != nil {
		el.Variant = *update.Variant
	}
	if update.Style != nil {
		el.Style = copyValueMap(update.Style)
	}
	if update.TokenOverrides != nil {
		el.TokenOverrides = copyValueMap(update.TokenOverrides)
	}
	if update.Parent != nil {
		el.Parent = *update.Parent
	}

	e.history.push(e.doc)
	e.emitChange(EventElementUpdated, id)
	return true
}

// DeleteElement removes the element and every descendant reachable over
// Parent links, as one atomic history step. The cascade is a fixpoint
// walk, so parent cycles terminate.
func (e *canvasEngine) DeleteElement(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexOf(id) < 0 {
		return false
	}

	removed := map[string]bool{id: true}
	for {
		grew := false
		for _, el := range e.doc.Elements {
			if el.Parent != "" && removed[el.Parent] && !removed[el.ID] {
				removed[el.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	kept := e.doc.Elements[:0]
	for _, el := range e.doc.Elements {
		if !removed[el.ID] {
			kept = append(kept, el)
		}
	}
	e.doc.Elements = kept

	selection := e.doc.SelectedElements[:0]
	for _, sel := range e.doc.SelectedElements {
		if !removed[sel] {
			selection = append(selection, sel)
		}
	}
	e.doc.SelectedElements = selection

	e.history.push(e.doc)
	e.emitChange(EventElementRemoved, id)
	return true
}

// SelectElements replaces the selection wholesale. Ids are not validated
// against existing elements, and no history snapshot is pushed.
func (e *canvasEngine) SelectElements(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc.SelectedElements = append([]string{}, ids...)
}

// ClearSelection empties the selection set.
func (e *canvasEngine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc.SelectedElements = []string{}
}

// LoadDesignSystem stores the system and re-resolves style for every
// element with a component reference: the new variant defaults are
// merged with the element's stored TokenOverrides, which stay the
// durable source of user customization across design-system swaps.
// Elements that don't resolve in the new system keep their style.
func (e *canvasEngine) LoadDesignSystem(ds *DesignSystem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.designSystem = ds
	if ds != nil {
		e.doc.DesignSystemID = ds.ID
	}

	for i := range e.doc.Elements {
		el := &e.doc.Elements[i]
		if el.Component == "" {
			continue
		}
		if defaults, ok := e.resolveVariantStyle(el.Component, el.Variant); ok {
			el.Style = mergeShallow(defaults, el.TokenOverrides)
		}
	}

	e.history.push(e.doc)
	e.emitChange(EventDesignSystemLoaded, "")
}

// DesignToken performs a null-safe nested lookup through the loaded
// system's token mapping. It never panics; a missing segment or absent
// design system yields (nil, false).
func (e *canvasEngine) DesignToken(dotPath string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.designSystem == nil {
		return nil, false
	}
	return lookupToken(e.designSystem.Tokens, dotPath)
}

// Undo moves one step back in history, replacing current state with that
// snapshot's copy. Returns whether the move occurred.
func (e *canvasEngine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.history.undo()
	if doc == nil {
		return false
	}
	e.doc = doc
	e.emitChange(EventHistoryUndo, "")
	return true
}

// Redo is the mirror operation moving forward.
func (e *canvasEngine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.history.redo()
	if doc == nil {
		return false
	}
	e.doc = doc
	e.emitChange(EventHistoryRedo, "")
	return true
}

// HistoryLength reports the retained snapshot count and cursor position.
func (e *canvasEngine) HistoryLength() (count, cursor int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.history.length()
}

// ToJSON serializes the document state only; history is excluded.
func (e *canvasEngine) ToJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	data, err := json.MarshalIndent(e.doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// FromJSON replaces the entire document state with the parsed value and
// pushes one history snapshot. Malformed input fails hard; the current
// state is left untouched.
func (e *canvasEngine) FromJSON(data []byte) error {
	var doc CanvasDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%s: %w", ErrMalformedDocument, err)
	}
	if doc.Elements == nil {
		doc.Elements = []CanvasElement{}
	}
	if doc.SelectedElements == nil {
		doc.SelectedElements = []string{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc = &doc
	e.history.push(e.doc)
	e.emitChange(EventDocumentLoaded, "")
	return nil
}

// OnDocumentChange subscribes to document mutations. The returned
// function unsubscribes.
func (e *canvasEngine) OnDocumentChange(handler DocumentChangeHandler) func() {
	return e.eventBus.on(EventDocumentChanged, handler)
}

// OnError subscribes to engine errors.
func (e *canvasEngine) OnError(handler ErrorHandler) func() {
	return e.eventBus.on(EventError, handler)
}

// Internal helpers. All assume the caller holds the lock.

func (e *canvasEngine) indexOf(id string) int {
	for i, el := range e.doc.Elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

func (e *canvasEngine) snapEnabled() bool {
	return e.doc.Grid.Snap && e.doc.Grid.Size > 0
}

func (e *canvasEngine) snap(v float64) float64 {
	return math.Round(v/e.doc.Grid.Size) * e.doc.Grid.Size
}

// wouldFormCycle reports whether re-parenting id under newParent would
// close a loop over Parent links.
func (e *canvasEngine) wouldFormCycle(id, newParent string) bool {
	parents := make(map[string]string, len(e.doc.Elements))
	for _, el := range e.doc.Elements {
		parents[el.ID] = el.Parent
	}

	// Loaded documents may already contain parent loops, so bound the
	// walk with a visited set instead of trusting the chain to end.
	visited := make(map[string]bool, len(parents))
	for cur := newParent; cur != ""; cur = parents[cur] {
		if cur == id {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
	}
	return false
}

// resolveVariantStyle looks up the default style properties for a
// component/variant pair in the loaded design system. An empty variant
// falls back to the component's default variant.
func (e *canvasEngine) resolveVariantStyle(component, variant string) (map[string]any, bool) {
	if e.designSystem == nil || component == "" {
		return nil, false
	}
	def, ok := e.designSystem.Components[component]
	if !ok {
		return nil, false
	}
	name := variant
	if name == "" {
		name = def.DefaultVariant
	}
	props, ok := def.Variants[name]
	if !ok {
		return nil, false
	}
	return props, true
}

// emitChange publishes the mutation under its specific event type and
// under the umbrella EventDocumentChanged that OnDocumentChange uses.
func (e *canvasEngine) emitChange(eventType EventType, elementID string) {
	change := DocumentChange{
		Type:      string(eventType),
		ElementID: elementID,
		Timestamp: time.Now(),
		Source:    "user",
	}
	e.eventBus.emit(eventType, change)
	if eventType != EventDocumentChanged {
		e.eventBus.emit(EventDocumentChanged, change)
	}
}

// mergeShallow merges overlay onto a copy of base. Overlay values win on
// key collision; nested maps are not deep-merged.
func mergeShallow(base, overlay map[string]any) map[string]any {
	merged := copyValueMap(base)
	if merged == nil {
		merged = make(map[string]any, len(overlay))
	}
	for k, v := range overlay {
		merged[k] = copyValue(v)
	}
	return merged
}

// lookupToken walks a dot-separated path through nested token maps.
func lookupToken(tokens map[string]any, dotPath string) (any, bool) {
	if tokens == nil || dotPath == "" {
		return nil, false
	}

	var cur any = tokens
	for _, seg := range strings.Split(dotPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
