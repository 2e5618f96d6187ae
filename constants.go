package engine

// EventType represents different event types in the system
type EventType string

// Event type constants
const (
	// Document Events
	EventDocumentLoaded  EventType = "document.loaded"
	EventDocumentChanged EventType = "document.changed"
	EventElementAdded    EventType = "element.added"
	EventElementUpdated  EventType = "element.updated"
	EventElementRemoved  EventType = "element.removed"

	// Design System Events
	EventDesignSystemLoaded EventType = "designsystem.loaded"

	// History Events
	EventHistoryUndo EventType = "history.undo"
	EventHistoryRedo EventType = "history.redo"

	// Template Catalog Events
	EventTemplateImported EventType = "template.imported"
	EventTemplateUpdated  EventType = "template.updated"
	EventCatalogReloaded  EventType = "catalog.reloaded"

	// Error Events
	EventError EventType = "error"
)

// Default configuration values
const (
	DefaultMaxHistory    = 50
	DefaultGridSize      = 8
	DefaultCanvasWidth   = 1920
	DefaultCanvasHeight  = 1080
	DefaultDebounceDelay = 500 // milliseconds
	DefaultDocumentName  = "Untitled"
	MinTokenLength       = 20 // below this, password token values draw a warning
)

// Validation error codes
const (
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeRequiredField    = "REQUIRED_FIELD"
	CodeInvalidType      = "INVALID_TYPE"
	CodePatternMismatch  = "PATTERN_MISMATCH"
	CodeOutOfRange       = "OUT_OF_RANGE"
)

// Error messages
const (
	ErrTemplateNotFound  = "template not found"
	ErrDuplicateTemplate = "template already exists"
	ErrMalformedDocument = "malformed document"
	ErrMalformedTemplate = "malformed template"
)
