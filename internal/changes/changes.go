// Package changes computes the create/update/delete operations that bring the
// stored details of a VAL in line with an edited copy.
package changes

import (
	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

// Action is the kind of change applied to one detail.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Record is one persistence operation. DetailID is empty for creates; the
// client-generated identifier travels in Payload.ID so the saved row keeps the
// identity the editor already uses.
type Record struct {
	Action    Action               `json:"action"`
	DetailID  string               `json:"detailId,omitempty"`
	SectionID string               `json:"sectionId"`
	Payload   *detail.ContentBlock `json:"payload,omitempty"`
}

// Calculate returns the operations turning original into current for one
// section. Deletes come first, then creates and updates in current's order.
func Calculate(valID, sectionID string, original, current []detail.ContentBlock) []Record {
	records := make([]Record, 0)

	currentIDs := make(map[string]struct{}, len(current))
	for _, block := range current {
		if block.ID != "" {
			currentIDs[block.ID] = struct{}{}
		}
	}
	originalByID := make(map[string]detail.ContentBlock, len(original))
	for _, block := range original {
		if block.ID == "" {
			continue
		}
		originalByID[block.ID] = block
		if _, kept := currentIDs[block.ID]; !kept {
			records = append(records, Record{
				Action:    ActionDelete,
				DetailID:  block.ID,
				SectionID: sectionID,
			})
		}
	}

	for i, block := range current {
		payload := detail.Clone([]detail.ContentBlock{block})[0]
		payload.ValID = valID
		payload.SectionID = sectionID
		payload.DisplayOrder = i + 1

		prev, existed := originalByID[block.ID]
		if block.ID == "" || !existed {
			records = append(records, Record{
				Action:    ActionCreate,
				SectionID: sectionID,
				Payload:   &payload,
			})
			continue
		}
		if !differs(prev, payload) {
			continue
		}
		records = append(records, Record{
			Action:    ActionUpdate,
			DetailID:  block.ID,
			SectionID: sectionID,
			Payload:   &payload,
		})
	}
	return records
}

func differs(prev, next detail.ContentBlock) bool {
	return prev.Content != next.Content ||
		prev.DisplayOrder != next.DisplayOrder ||
		prev.Bullet != next.Bullet ||
		!detail.SameInt(prev.Indent, next.Indent) ||
		prev.Center != next.Center ||
		prev.Bold != next.Bold ||
		!detail.SameInt(prev.BlankLineAfter, next.BlankLineAfter) ||
		prev.TightLineHeight != next.TightLineHeight
}

// Aggregate runs Calculate for every well-formed tracked section, in the order
// sections were first tracked. Sections missing either snapshot are skipped.
func Aggregate(valID string, tracking *Tracking) []Record {
	records := make([]Record, 0)
	if tracking == nil {
		return records
	}
	tracking.Each(func(state *SectionState) {
		if !state.wellFormed() {
			return
		}
		records = append(records, Calculate(valID, state.SectionID, state.Original, state.Current)...)
	})
	return records
}

// HasChanges reports whether any tracked section's markup differs from the
// markup of its original snapshot. It is a fast check; Aggregate is
// authoritative.
func HasChanges(tracking *Tracking) bool {
	if tracking == nil {
		return false
	}
	changed := false
	tracking.Each(func(state *SectionState) {
		if changed || state.Original == nil {
			return
		}
		if detail.Encode(state.Original) != state.Markup {
			changed = true
		}
	})
	return changed
}

// Summary counts records by action.
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Summarize counts records by action.
func Summarize(records []Record) Summary {
	var s Summary
	for _, record := range records {
		switch record.Action {
		case ActionCreate:
			s.Created++
		case ActionUpdate:
			s.Updated++
		case ActionDelete:
			s.Deleted++
		}
	}
	return s
}

// Total is the number of records summarized.
func (s Summary) Total() int {
	return s.Created + s.Updated + s.Deleted
}
