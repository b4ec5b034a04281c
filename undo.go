package main

type slideSnapshot struct {
	ID      SlideID
	Objects []Annotation
}

// historyEntry is a deep copy of every slide's annotation layer plus the
// active slide index. Raster bases are never part of an entry.
type historyEntry struct {
	slides []slideSnapshot
	active int
}

// History is a bounded linear undo log. index always points at the entry
// matching the displayed state; entry 0 is the floor undo cannot cross.
type History struct {
	entries   []historyEntry
	index     int
	limit     int
	restoring bool
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = defaultMaxHistory
	}
	return &History{limit: limit}
}

func captureEntry(doc *Document, active int) historyEntry {
	e := historyEntry{active: active, slides: make([]slideSnapshot, 0, doc.Len())}
	for _, s := range doc.Slides() {
		e.slides = append(e.slides, slideSnapshot{ID: s.ID, Objects: s.annotations()})
	}
	return e
}

// Reset discards all entries and records doc as the new floor.
func (h *History) Reset(doc *Document, active int) {
	h.entries = []historyEntry{captureEntry(doc, active)}
	h.index = 0
}

// Snapshot records the current state, pruning any redo entries. It is a
// no-op while a restore is in progress.
func (h *History) Snapshot(doc *Document, active int) bool {
	if h.restoring {
		return false
	}
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.index+1]
	}
	h.entries = append(h.entries, captureEntry(doc, active))
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	h.index = len(h.entries) - 1
	return true
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Index() int    { return h.index }

// Undo steps back one entry and restores it into doc. It returns the active
// slide index recorded in that entry.
func (h *History) Undo(doc *Document) (int, bool) {
	if !h.CanUndo() {
		return 0, false
	}
	h.index--
	return h.restore(doc), true
}

func (h *History) Redo(doc *Document) (int, bool) {
	if !h.CanRedo() {
		return 0, false
	}
	h.index++
	return h.restore(doc), true
}

// restore replaces the annotation layer of every slide present in the
// current entry. Slides added after the entry was taken are left alone.
func (h *History) restore(doc *Document) int {
	h.restoring = true
	defer func() { h.restoring = false }()

	e := h.entries[h.index]
	for _, snap := range e.slides {
		if s := doc.SlideByID(snap.ID); s != nil {
			s.setAnnotations(snap.Objects)
		}
	}
	return e.active
}
