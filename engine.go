package engine

// CanvasEngine owns a mutable canvas document and its undo/redo history.
// All operations are synchronous, in-memory computations; persistence is
// the caller's responsibility (see DocumentStore for the standard helper).
type CanvasEngine interface {
	// State access
	GetState() *CanvasDocument
	SetState(patch StatePatch)

	// Element CRUD
	AddElement(spec ElementSpec) *CanvasElement
	UpdateElement(id string, update ElementUpdate) bool
	DeleteElement(id string) bool

	// Selection
	SelectElements(ids []string)
	ClearSelection()

	// Design system binding
	LoadDesignSystem(ds *DesignSystem)
	DesignToken(dotPath string) (any, bool)

	// Layout (operate on the current selection)
	AlignElements(edge AlignEdge)
	DistributeElements(direction Direction)
	AlignElementsBatched(edge AlignEdge)
	DistributeElementsBatched(direction Direction)

	// History
	Undo() bool
	Redo() bool
	HistoryLength() (count, cursor int)

	// Serialization (document only; history is excluded)
	ToJSON() ([]byte, error)
	FromJSON(data []byte) error

	// Event Handling
	OnDocumentChange(handler DocumentChangeHandler) func()
	OnError(handler ErrorHandler) func()
}

// Storage is the persistence abstraction used by DocumentStore and the
// template catalog. Implementations: FileStorage, MemoryStorage,
// storage/redis, storage/sqlite.
type Storage interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	List(prefix string) ([]string, error)
	Watch(key string, handler func([]byte)) (func(), error)
}

// Option configures a CanvasEngine at construction.
type Option func(*engineConfig) error

type engineConfig struct {
	name       string
	width      float64
	height     float64
	grid       *GridSettings
	maxHistory int
	document   *CanvasDocument
}

// WithDocumentName sets the initial document name.
func WithDocumentName(name string) Option {
	return func(cfg *engineConfig) error {
		cfg.name = name
		return nil
	}
}

// WithCanvasSize sets the initial canvas dimensions.
func WithCanvasSize(width, height float64) Option {
	return func(cfg *engineConfig) error {
		cfg.width = width
		cfg.height = height
		return nil
	}
}

// WithGrid sets the initial grid settings.
func WithGrid(grid GridSettings) Option {
	return func(cfg *engineConfig) error {
		cfg.grid = &grid
		return nil
	}
}

// WithMaxHistory bounds the retained snapshot count.
func WithMaxHistory(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxHistory = n
		return nil
	}
}

// WithDocument starts the engine from an existing document instead of a
// fresh one. The document becomes the initial history snapshot.
func WithDocument(doc *CanvasDocument) Option {
	return func(cfg *engineConfig) error {
		cfg.document = doc
		return nil
	}
}
