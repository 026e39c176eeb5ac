// Package detail converts between ordered VAL detail records and the
// paragraph markup rendered by the editing surface.
package detail

import "sort"

// ContentBlock is one paragraph of a VAL section.
type ContentBlock struct {
	ID              string `json:"id"`
	ValID           string `json:"valId"`
	SectionID       string `json:"sectionId"`
	Content         string `json:"content"`
	DisplayOrder    int    `json:"displayOrder"`
	Bold            bool   `json:"bold"`
	Bullet          bool   `json:"bullet"`
	Center          bool   `json:"center"`
	TightLineHeight bool   `json:"tightLineHeight"`
	Indent          *int   `json:"indent"`
	BlankLineAfter  *int   `json:"blankLineAfter"`
}

// Flags is the formatting state carried by the class attribute.
type Flags struct {
	Bold            bool
	Bullet          bool
	Center          bool
	TightLineHeight bool
	Indent          *int
}

// Flags returns the block's class-bearing formatting state.
func (b ContentBlock) Flags() Flags {
	return Flags{
		Bold:            b.Bold,
		Bullet:          b.Bullet,
		Center:          b.Center,
		TightLineHeight: b.TightLineHeight,
		Indent:          b.Indent,
	}
}

// Clone returns a deep copy of blocks. The result is never nil.
func Clone(blocks []ContentBlock) []ContentBlock {
	out := make([]ContentBlock, len(blocks))
	for i, block := range blocks {
		out[i] = block
		out[i].Indent = cloneInt(block.Indent)
		out[i].BlankLineAfter = cloneInt(block.BlankLineAfter)
	}
	return out
}

// SortByDisplayOrder returns a copy of blocks ordered by DisplayOrder.
// Ties keep their relative input order.
func SortByDisplayOrder(blocks []ContentBlock) []ContentBlock {
	sorted := Clone(blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}

// Renumber sets DisplayOrder to position+1 in place.
func Renumber(blocks []ContentBlock) {
	for i := range blocks {
		blocks[i].DisplayOrder = i + 1
	}
}

// FilterSection returns the blocks of one section in display order.
func FilterSection(blocks []ContentBlock, sectionID string) []ContentBlock {
	filtered := make([]ContentBlock, 0)
	for _, block := range blocks {
		if block.SectionID == sectionID {
			filtered = append(filtered, block)
		}
	}
	return SortByDisplayOrder(filtered)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// SameInt reports whether two optional integers hold the same value.
// nil only equals nil.
func SameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}
