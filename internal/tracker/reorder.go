package tracker

import "github.com/rickylandino/val-builder-sub000/internal/detail"

// MoveBlock moves the detail draggedID to targetIndex within the active
// section. Any unsynced markup is decoded first so typing is not lost.
func (c *Coordinator) MoveBlock(draggedID string, targetIndex int) bool {
	state, ok := c.active()
	if !ok {
		return false
	}
	c.SyncMarkupToBlocks()

	byID := make(map[string]detail.ContentBlock, len(state.Current))
	ids := make([]string, 0, len(state.Current))
	for _, block := range state.Current {
		byID[block.ID] = block
		ids = append(ids, block.ID)
	}
	if _, ok := byID[draggedID]; !ok {
		return false
	}

	ordered := Reorder(ids, draggedID, targetIndex)
	next := make([]detail.ContentBlock, 0, len(ordered))
	for _, id := range ordered {
		next = append(next, byID[id])
	}
	c.ApplyBlockListEdit(next)
	return true
}

// Reorder removes dragged from ids and reinserts it at target, clamped to the
// bounds of the shortened sequence.
func Reorder(ids []string, dragged string, target int) []string {
	rest := make([]string, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == dragged && !found {
			found = true
			continue
		}
		rest = append(rest, id)
	}
	if !found {
		return append([]string(nil), ids...)
	}
	target = clamp(target, 0, len(rest))
	out := make([]string, 0, len(ids))
	out = append(out, rest[:target]...)
	out = append(out, dragged)
	out = append(out, rest[target:]...)
	return out
}

// DropTargetIndex resolves a drop landing inside the span of the block at
// index k. draggedPos is the dragged block's position in the document before
// the drag and targetStart the position where block k begins. Dragging upward
// yields k and dragging downward yields k-1; once the dragged block is taken
// out of the sequence both put it directly in front of block k.
func DropTargetIndex(draggedPos, targetStart, k int) int {
	if draggedPos > targetStart {
		return k
	}
	if k-1 < 0 {
		return 0
	}
	return k - 1
}
