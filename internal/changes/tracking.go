package changes

import "github.com/rickylandino/val-builder-sub000/internal/detail"

// SectionState is the working copy of one section during an editing session.
// Original is the baseline captured when the section was first loaded; Markup
// is the editor's view of Current and may briefly run ahead of it while the
// user types.
type SectionState struct {
	SectionID string
	Current   []detail.ContentBlock
	Original  []detail.ContentBlock
	Markup    string
}

func (s *SectionState) wellFormed() bool {
	return s != nil && s.Current != nil && s.Original != nil
}

// Tracking holds section states keyed by section id, remembering the order in
// which sections were first tracked.
type Tracking struct {
	order  []string
	states map[string]*SectionState
}

// NewTracking returns an empty tracking map.
func NewTracking() *Tracking {
	return &Tracking{states: make(map[string]*SectionState)}
}

// Get returns the state for sectionID.
func (t *Tracking) Get(sectionID string) (*SectionState, bool) {
	state, ok := t.states[sectionID]
	return state, ok
}

// Set stores state, keeping the original position of an already tracked section.
func (t *Tracking) Set(state *SectionState) {
	if _, ok := t.states[state.SectionID]; !ok {
		t.order = append(t.order, state.SectionID)
	}
	t.states[state.SectionID] = state
}

// Len returns the number of tracked sections.
func (t *Tracking) Len() int {
	return len(t.order)
}

// Sections returns tracked section ids in tracking order.
func (t *Tracking) Sections() []string {
	return append([]string(nil), t.order...)
}

// Each calls fn for every tracked section in tracking order.
func (t *Tracking) Each(fn func(*SectionState)) {
	for _, id := range t.order {
		fn(t.states[id])
	}
}

// Clear forgets every section.
func (t *Tracking) Clear() {
	t.order = nil
	t.states = make(map[string]*SectionState)
}

// Retain forgets every section except sectionID.
func (t *Tracking) Retain(sectionID string) {
	state, ok := t.states[sectionID]
	t.Clear()
	if ok {
		t.Set(state)
	}
}
