package engine

// history is a bounded linear undo/redo stack of full-document
// snapshots. Branching is not supported: pushing after an undo discards
// every snapshot beyond the cursor.
type history struct {
	snapshots []*CanvasDocument
	cursor    int // index of the snapshot matching current state
	max       int
}

func newHistory(max int, initial *CanvasDocument) *history {
	if max < 1 {
		max = DefaultMaxHistory
	}
	return &history{
		snapshots: []*CanvasDocument{copyDocument(initial)},
		cursor:    0,
		max:       max,
	}
}

// push records a snapshot of doc as the new latest state. Redo steps are
// invalidated; the oldest snapshot is evicted once the bound is hit.
func (h *history) push(doc *CanvasDocument) {
	h.snapshots = append(h.snapshots[:h.cursor+1], copyDocument(doc))
	h.cursor = len(h.snapshots) - 1

	if len(h.snapshots) > h.max {
		excess := len(h.snapshots) - h.max
		h.snapshots = h.snapshots[excess:]
		h.cursor -= excess
		if h.cursor < 0 {
			h.cursor = 0
		}
	}
}

// undo moves the cursor one step back and returns that snapshot's copy,
// or nil when already at the oldest snapshot.
func (h *history) undo() *CanvasDocument {
	if h.cursor == 0 {
		return nil
	}
	h.cursor--
	return copyDocument(h.snapshots[h.cursor])
}

// redo is the mirror operation moving forward.
func (h *history) redo() *CanvasDocument {
	if h.cursor >= len(h.snapshots)-1 {
		return nil
	}
	h.cursor++
	return copyDocument(h.snapshots[h.cursor])
}

func (h *history) length() (count, cursor int) {
	return len(h.snapshots), h.cursor
}
