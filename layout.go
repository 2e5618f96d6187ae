package engine

import "sort"

// Layout operations. Both operate only on elements whose id is in the
// current selection and reposition them through the element update path,
// so grid snapping applies to every move.
//
// AlignElements and DistributeElements push one history snapshot per
// repositioned element, matching the editor's observable undo behavior.
// The Batched variants push a single snapshot per logical operation and
// are the recommended API for new callers.

// AlignElements aligns all selected elements to an edge or center line
// of their common bounding box. No-op when fewer than 2 are selected.
func (e *canvasEngine) AlignElements(edge AlignEdge) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.alignLocked(edge, false)
}

// AlignElementsBatched is AlignElements with one snapshot for the whole
// pass.
func (e *canvasEngine) AlignElementsBatched(edge AlignEdge) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.alignLocked(edge, true)
}

// DistributeElements spaces selected elements evenly along an axis
// between the first and last element's positions; the endpoints are left
// untouched. No-op when fewer than 3 are selected.
func (e *canvasEngine) DistributeElements(direction Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.distributeLocked(direction, false)
}

// DistributeElementsBatched is DistributeElements with one snapshot for
// the whole pass.
func (e *canvasEngine) DistributeElementsBatched(direction Direction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.distributeLocked(direction, true)
}

func (e *canvasEngine) alignLocked(edge AlignEdge, batched bool) {
	selected := e.selectedIndexesLocked()
	if len(selected) < 2 {
		return
	}

	minX, minY, maxX, maxY := e.boundsLocked(selected)

	for _, idx := range selected {
		el := &e.doc.Elements[idx]

		var update ElementUpdate
		switch edge {
		case AlignLeft:
			update.X = ptr(minX)
		case AlignCenter:
			update.X = ptr((minX+maxX)/2 - el.Width/2)
		case AlignRight:
			update.X = ptr(maxX - el.Width)
		case AlignTop:
			update.Y = ptr(minY)
		case AlignMiddle:
			update.Y = ptr((minY+maxY)/2 - el.Height/2)
		case AlignBottom:
			update.Y = ptr(maxY - el.Height)
		default:
			return
		}

		if batched {
			e.applyPositionLocked(idx, update)
		} else {
			e.updateElementLocked(el.ID, update)
		}
	}

	if batched {
		e.history.push(e.doc)
		e.emitChange(EventDocumentChanged, "")
	}
}

func (e *canvasEngine) distributeLocked(direction Direction, batched bool) {
	selected := e.selectedIndexesLocked()
	if len(selected) < 3 {
		return
	}

	// Sort ascending by position along the axis.
	sort.Slice(selected, func(i, j int) bool {
		a, b := e.doc.Elements[selected[i]], e.doc.Elements[selected[j]]
		if direction == Horizontal {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	first := e.doc.Elements[selected[0]]
	last := e.doc.Elements[selected[len(selected)-1]]

	var start, span float64
	if direction == Horizontal {
		start, span = first.X, last.X-first.X
	} else {
		start, span = first.Y, last.Y-first.Y
	}
	step := span / float64(len(selected)-1)

	// Endpoints keep their positions; only the elements strictly between
	// them move.
	for i := 1; i < len(selected)-1; i++ {
		idx := selected[i]
		pos := start + step*float64(i)

		var update ElementUpdate
		if direction == Horizontal {
			update.X = ptr(pos)
		} else {
			update.Y = ptr(pos)
		}

		if batched {
			e.applyPositionLocked(idx, update)
		} else {
			e.updateElementLocked(e.doc.Elements[idx].ID, update)
		}
	}

	if batched {
		e.history.push(e.doc)
		e.emitChange(EventDocumentChanged, "")
	}
}

// selectedIndexesLocked resolves the selection to element indexes in
// z-order. Selected ids with no matching element are skipped.
func (e *canvasEngine) selectedIndexesLocked() []int {
	selected := make(map[string]bool, len(e.doc.SelectedElements))
	for _, id := range e.doc.SelectedElements {
		selected[id] = true
	}

	var idxs []int
	for i, el := range e.doc.Elements {
		if selected[el.ID] {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// boundsLocked computes the bounding box over the given elements.
func (e *canvasEngine) boundsLocked(idxs []int) (minX, minY, maxX, maxY float64) {
	first := e.doc.Elements[idxs[0]]
	minX, minY = first.X, first.Y
	maxX, maxY = first.X+first.Width, first.Y+first.Height

	for _, idx := range idxs[1:] {
		el := e.doc.Elements[idx]
		if el.X < minX {
			minX = el.X
		}
		if el.Y < minY {
			minY = el.Y
		}
		if el.X+el.Width > maxX {
			maxX = el.X + el.Width
		}
		if el.Y+el.Height > maxY {
			maxY = el.Y + el.Height
		}
	}
	return minX, minY, maxX, maxY
}

// applyPositionLocked moves an element without pushing a snapshot, for
// the batched layout variants. Snapping still applies.
func (e *canvasEngine) applyPositionLocked(idx int, update ElementUpdate) {
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
}

func ptr[T any](v T) *T {
	return &v
}
