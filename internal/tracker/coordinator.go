// Package tracker keeps the per-section editing state of one VAL while a user
// works on it, and turns that state into pending changes.
//
// A Coordinator is not safe for concurrent use. Callers serialize access the
// same way a single UI event loop would.
package tracker

import (
	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

type Coordinator struct {
	valID          string
	currentSection string
	all            []detail.ContentBlock
	tracking       *changes.Tracking
}

// New creates a Coordinator for a VAL seeded with every detail it owns.
func New(valID string, all []detail.ContentBlock) *Coordinator {
	return &Coordinator{
		valID:    valID,
		all:      detail.Clone(all),
		tracking: changes.NewTracking(),
	}
}

// ValID returns the VAL this coordinator edits.
func (c *Coordinator) ValID() string {
	return c.valID
}

// SetAllBlocks replaces the cached details used to seed sections that have not
// been visited yet.
func (c *Coordinator) SetAllBlocks(all []detail.ContentBlock) {
	c.all = detail.Clone(all)
}

// CurrentSection returns the active section id, or "" before the first switch.
func (c *Coordinator) CurrentSection() string {
	return c.currentSection
}

// CurrentBlocks returns a copy of the active section's details.
func (c *Coordinator) CurrentBlocks() []detail.ContentBlock {
	state, ok := c.active()
	if !ok {
		return []detail.ContentBlock{}
	}
	return detail.Clone(state.Current)
}

// CurrentMarkup returns the active section's markup.
func (c *Coordinator) CurrentMarkup() string {
	state, ok := c.active()
	if !ok {
		return ""
	}
	return state.Markup
}

// TrackedSections lists the sections visited since the last reset or save.
func (c *Coordinator) TrackedSections() []string {
	return c.tracking.Sections()
}

// SwitchToSection makes sectionID active and returns its markup. The outgoing
// section's typing is decoded first, so only the active section ever holds
// unsynced markup. The first visit seeds the section from the cached details
// and captures the baseline used for diffing; later visits restore the
// tracked state.
func (c *Coordinator) SwitchToSection(sectionID string) string {
	if sectionID == c.currentSection {
		if state, ok := c.tracking.Get(sectionID); ok {
			return state.Markup
		}
	}
	if state, ok := c.active(); ok && state.Markup != detail.Encode(state.Current) {
		c.SyncMarkupToBlocks()
	}
	c.currentSection = sectionID
	if state, ok := c.tracking.Get(sectionID); ok {
		return state.Markup
	}
	return c.seed(sectionID, detail.FilterSection(c.all, sectionID)).Markup
}

func (c *Coordinator) seed(sectionID string, blocks []detail.ContentBlock) *changes.SectionState {
	current := detail.Clone(blocks)
	state := &changes.SectionState{
		SectionID: sectionID,
		Current:   current,
		Original:  detail.Clone(current),
		Markup:    detail.Encode(current),
	}
	c.tracking.Set(state)
	return state
}

func (c *Coordinator) active() (*changes.SectionState, bool) {
	if c.currentSection == "" {
		return nil, false
	}
	return c.tracking.Get(c.currentSection)
}

// ApplyMarkupEdit stores raw editor markup for the active section without
// decoding it. SyncMarkupToBlocks reconciles it later.
func (c *Coordinator) ApplyMarkupEdit(markup string) {
	state, ok := c.active()
	if !ok {
		return
	}
	state.Markup = markup
}

// ApplyBlockListEdit replaces the active section's details with blocks, in the
// given order, and re-derives its markup.
func (c *Coordinator) ApplyBlockListEdit(blocks []detail.ContentBlock) {
	state, ok := c.active()
	if !ok {
		return
	}
	current := detail.Clone(blocks)
	detail.Renumber(current)
	state.Current = current
	state.Markup = detail.Encode(current)
}

// SyncMarkupToBlocks decodes the active section's markup into details.
func (c *Coordinator) SyncMarkupToBlocks() {
	state, ok := c.active()
	if !ok {
		return
	}
	c.ApplyBlockListEdit(detail.Decode(state.Markup, state.Current, c.valID, state.SectionID))
}

// UpdateSingleBlock replaces the active section's detail with the same id.
// It reports false when there is no active section or no such detail; format
// changes can only target what the user is looking at.
func (c *Coordinator) UpdateSingleBlock(updated detail.ContentBlock) bool {
	state, ok := c.active()
	if !ok {
		return false
	}
	next := detail.Clone(state.Current)
	for i := range next {
		if next[i].ID == updated.ID {
			next[i] = detail.Clone([]detail.ContentBlock{updated})[0]
			c.ApplyBlockListEdit(next)
			return true
		}
	}
	return false
}

// Block returns the active section's detail with id, after folding in any
// unsynced markup.
func (c *Coordinator) Block(id string) (detail.ContentBlock, bool) {
	c.SyncMarkupToBlocks()
	for _, block := range c.CurrentBlocks() {
		if block.ID == id {
			return block, true
		}
	}
	return detail.ContentBlock{}, false
}

// DeleteBlock removes a detail from the active section.
func (c *Coordinator) DeleteBlock(id string) bool {
	state, ok := c.active()
	if !ok {
		return false
	}
	c.SyncMarkupToBlocks()
	next := make([]detail.ContentBlock, 0, len(state.Current))
	found := false
	for _, block := range state.Current {
		if block.ID == id {
			found = true
			continue
		}
		next = append(next, block)
	}
	if !found {
		return false
	}
	c.ApplyBlockListEdit(next)
	return true
}

// InsertBlock adds a new detail to the active section at index, copying the
// content and formatting of tmpl. The new detail gets a fresh identifier.
func (c *Coordinator) InsertBlock(tmpl detail.ContentBlock, index int) (detail.ContentBlock, bool) {
	state, ok := c.active()
	if !ok {
		return detail.ContentBlock{}, false
	}
	c.SyncMarkupToBlocks()

	created := detail.Clone([]detail.ContentBlock{tmpl})[0]
	created.ID = detail.NewID()
	created.ValID = c.valID
	created.SectionID = state.SectionID

	index = clamp(index, 0, len(state.Current))
	next := make([]detail.ContentBlock, 0, len(state.Current)+1)
	next = append(next, state.Current[:index]...)
	next = append(next, created)
	next = append(next, state.Current[index:]...)
	c.ApplyBlockListEdit(next)

	created.DisplayOrder = index + 1
	return created, true
}

// PendingChanges returns the operations needed to persist every tracked
// section. The active section contributes its current details; call
// SyncMarkupToBlocks first to include unsynced typing.
func (c *Coordinator) PendingChanges() []changes.Record {
	return changes.Aggregate(c.valID, c.tracking)
}

// HasPendingChanges is the markup-level fast check for unsaved edits.
func (c *Coordinator) HasPendingChanges() bool {
	return changes.HasChanges(c.tracking)
}

// ResetAll discards every tracked edit. The active section is restored from
// its baseline when one was captured, otherwise from the cached details.
func (c *Coordinator) ResetAll() {
	var baseline []detail.ContentBlock
	if state, ok := c.active(); ok && state.Original != nil {
		baseline = detail.Clone(state.Original)
	}
	c.tracking.Clear()
	if c.currentSection == "" {
		return
	}
	if baseline == nil {
		baseline = detail.FilterSection(c.all, c.currentSection)
	}
	c.seed(c.currentSection, baseline)
}

// CheckpointAfterSave records a successful save: the active section's details
// become its new baseline and every other section is dropped. Their saved
// details are kept in the cache so revisiting them shows what was saved.
func (c *Coordinator) CheckpointAfterSave() {
	c.foldTrackedIntoCache()
	state, ok := c.active()
	if !ok {
		c.tracking.Clear()
		return
	}
	state.Original = detail.Clone(state.Current)
	state.Markup = detail.Encode(state.Current)
	c.tracking.Retain(c.currentSection)
}

func (c *Coordinator) foldTrackedIntoCache() {
	tracked := make(map[string]struct{}, c.tracking.Len())
	merged := make([]detail.ContentBlock, 0, len(c.all))
	c.tracking.Each(func(state *changes.SectionState) {
		if state.Current == nil {
			return
		}
		tracked[state.SectionID] = struct{}{}
		merged = append(merged, detail.Clone(state.Current)...)
	})
	for _, block := range c.all {
		if _, ok := tracked[block.SectionID]; ok {
			continue
		}
		merged = append(merged, block)
	}
	c.all = merged
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
