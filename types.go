package engine

import "time"

// CanvasDocument is the root aggregate of an editing session. It is
// mutated in place by the engine; every mutating operation pushes a
// history snapshot.
type CanvasDocument struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Width            float64         `json:"width"`
	Height           float64         `json:"height"`
	BackgroundColor  string          `json:"backgroundColor,omitempty"`
	Elements         []CanvasElement `json:"elements"`
	SelectedElements []string        `json:"selectedElements"`
	Grid             GridSettings    `json:"grid"`
	Guides           GuideSettings   `json:"guides"`
	DesignSystemID   string          `json:"designSystemId,omitempty"`
}

// CanvasElement is a single element on the canvas. IDs are assigned by
// the engine at creation; callers never supply them.
type CanvasElement struct {
	ID             string         `json:"id"`
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	Component      string         `json:"component,omitempty"`
	Variant        string         `json:"variant,omitempty"`
	Style          map[string]any `json:"style,omitempty"`
	TokenOverrides map[string]any `json:"tokenOverrides,omitempty"`
	Parent         string         `json:"parent,omitempty"`
}

// GridSettings controls grid display and position snapping.
type GridSettings struct {
	Enabled bool    `json:"enabled"`
	Size    float64 `json:"size"`
	Snap    bool    `json:"snap"`
}

// GuideSettings controls alignment guides.
type GuideSettings struct {
	Enabled bool `json:"enabled"`
	Smart   bool `json:"smart"`
}

// DesignSystem is an externally supplied, read-only catalog of component
// styles and design tokens. The engine never fetches or persists it.
type DesignSystem struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name,omitempty"`
	Components map[string]ComponentDef `json:"components,omitempty"`
	Tokens     map[string]any          `json:"tokens,omitempty"`
}

// ComponentDef describes one component's variants within a design system.
type ComponentDef struct {
	DefaultVariant string                    `json:"defaultVariant,omitempty"`
	Variants       map[string]map[string]any `json:"variants,omitempty"`
}

// ElementSpec describes an element to be created. The engine assigns the
// id and resolves style against the loaded design system.
type ElementSpec struct {
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	Component      string         `json:"component,omitempty"`
	Variant        string         `json:"variant,omitempty"`
	Style          map[string]any `json:"style,omitempty"`
	TokenOverrides map[string]any `json:"tokenOverrides,omitempty"`
	Parent         string         `json:"parent,omitempty"`
}

// ElementUpdate is an explicit partial update: nil fields are left
// untouched. Style and TokenOverrides replace the whole map when set.
type ElementUpdate struct {
	X              *float64       `json:"x,omitempty"`
	Y              *float64       `json:"y,omitempty"`
	Width          *float64       `json:"width,omitempty"`
	Height         *float64       `json:"height,omitempty"`
	Component      *string        `json:"component,omitempty"`
	Variant        *string        `json:"variant,omitempty"`
	Style          map[string]any `json:"style,omitempty"`
	TokenOverrides map[string]any `json:"tokenOverrides,omitempty"`
	Parent         *string        `json:"parent,omitempty"`
}

// StatePatch is an explicit partial update of document-level fields.
// Elements and selection are managed through their own operations.
type StatePatch struct {
	Name            *string        `json:"name,omitempty"`
	Width           *float64       `json:"width,omitempty"`
	Height          *float64       `json:"height,omitempty"`
	BackgroundColor *string        `json:"backgroundColor,omitempty"`
	Grid            *GridSettings  `json:"grid,omitempty"`
	Guides          *GuideSettings `json:"guides,omitempty"`
	DesignSystemID  *string        `json:"designSystemId,omitempty"`
}

// AlignEdge selects which edge or center line AlignElements targets.
type AlignEdge string

const (
	AlignLeft   AlignEdge = "left"
	AlignCenter AlignEdge = "center"
	AlignRight  AlignEdge = "right"
	AlignTop    AlignEdge = "top"
	AlignMiddle AlignEdge = "middle"
	AlignBottom AlignEdge = "bottom"
)

// Direction selects the axis for DistributeElements.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// DocumentChange is emitted on the event bus after every mutation.
type DocumentChange struct {
	Type      string    `json:"type"` // "element.added", "element.updated", ...
	ElementID string    `json:"elementId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "user", "import", "watcher"
}

// Event handler types
type DocumentChangeHandler func(change DocumentChange)
type ErrorHandler func(err error)

// copyDocument returns a deep copy of a document. Snapshots and the
// GetState defensive copy both rely on this.
func copyDocument(doc *CanvasDocument) *CanvasDocument {
	dup := *doc

	dup.Elements = make([]CanvasElement, len(doc.Elements))
	for i, el := range doc.Elements {
		dup.Elements[i] = copyElement(el)
	}

	dup.SelectedElements = append([]string(nil), doc.SelectedElements...)
	return &dup
}

func copyElement(el CanvasElement) CanvasElement {
	dup := el
	dup.Style = copyValueMap(el.Style)
	dup.TokenOverrides = copyValueMap(el.TokenOverrides)
	return dup
}

// copyValueMap deep-copies a JSON-shaped map (nested maps and slices).
func copyValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	dup := make(map[string]any, len(m))
	for k, v := range m {
		dup[k] = copyValue(v)
	}
	return dup
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyValueMap(val)
	case []any:
		dup := make([]any, len(val))
		for i, item := range val {
			dup[i] = copyValue(item)
		}
		return dup
	default:
		return v
	}
}
