package changes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

func block(id string, order int, content string) detail.ContentBlock {
	return detail.ContentBlock{ID: id, ValID: "val-1", SectionID: "sec-1", Content: content, DisplayOrder: order}
}

func TestCalculateIdenticalIsEmpty(t *testing.T) {
	original := []detail.ContentBlock{block("a", 1, "<p>A</p>"), block("b", 2, "<p>B</p>")}
	current := detail.Clone(original)

	got := Calculate("val-1", "sec-1", original, current)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCalculateDeleteOnly(t *testing.T) {
	original := []detail.ContentBlock{block("a", 1, "<p>A</p>"), block("b", 2, "<p>B</p>")}
	current := []detail.ContentBlock{block("a", 1, "<p>A</p>")}

	got := Calculate("val-1", "sec-1", original, current)

	require.Len(t, got, 1)
	assert.Equal(t, Record{Action: ActionDelete, DetailID: "b", SectionID: "sec-1"}, got[0])
}

func TestCalculateDeleteShiftsOrder(t *testing.T) {
	original := []detail.ContentBlock{block("a", 1, "<p>A</p>"), block("b", 2, "<p>B</p>")}
	current := []detail.ContentBlock{block("b", 2, "<p>B</p>")}

	got := Calculate("val-1", "sec-1", original, current)

	require.Len(t, got, 2)
	assert.Equal(t, ActionDelete, got[0].Action)
	assert.Equal(t, "a", got[0].DetailID)
	assert.Nil(t, got[0].Payload)

	assert.Equal(t, ActionUpdate, got[1].Action)
	assert.Equal(t, "b", got[1].DetailID)
	require.NotNil(t, got[1].Payload)
	assert.Equal(t, 1, got[1].Payload.DisplayOrder)
}

func TestCalculateCreate(t *testing.T) {
	original := []detail.ContentBlock{block("a", 1, "<p>A</p>")}
	fresh := detail.ContentBlock{ID: "new", Content: "<p>N</p>", DisplayOrder: 99}
	current := []detail.ContentBlock{fresh, block("a", 2, "<p>A</p>")}

	got := Calculate("val-1", "sec-1", original, current)

	require.Len(t, got, 2)
	assert.Equal(t, ActionCreate, got[0].Action)
	assert.Empty(t, got[0].DetailID)
	require.NotNil(t, got[0].Payload)
	assert.Equal(t, "new", got[0].Payload.ID)
	assert.Equal(t, "val-1", got[0].Payload.ValID)
	assert.Equal(t, "sec-1", got[0].Payload.SectionID)
	assert.Equal(t, 1, got[0].Payload.DisplayOrder)

	assert.Equal(t, ActionUpdate, got[1].Action)
	assert.Equal(t, 2, got[1].Payload.DisplayOrder)
}

func TestCalculateBlockWithoutIDIsCreate(t *testing.T) {
	current := []detail.ContentBlock{{Content: "<p>x</p>"}}
	got := Calculate("val-1", "sec-1", nil, current)
	require.Len(t, got, 1)
	assert.Equal(t, ActionCreate, got[0].Action)
}

func TestCalculateFieldUpdates(t *testing.T) {
	base := block("a", 1, "<p>A</p>")
	tests := []struct {
		name   string
		mutate func(*detail.ContentBlock)
	}{
		{name: "content", mutate: func(b *detail.ContentBlock) { b.Content = "<p>A2</p>" }},
		{name: "bold", mutate: func(b *detail.ContentBlock) { b.Bold = true }},
		{name: "bullet", mutate: func(b *detail.ContentBlock) { b.Bullet = true }},
		{name: "center", mutate: func(b *detail.ContentBlock) { b.Center = true }},
		{name: "tight line height", mutate: func(b *detail.ContentBlock) { b.TightLineHeight = true }},
		{name: "indent", mutate: func(b *detail.ContentBlock) { b.Indent = detail.IntPtr(1) }},
		{name: "blank line after", mutate: func(b *detail.ContentBlock) { b.BlankLineAfter = detail.IntPtr(2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := base
			tt.mutate(&current)

			got := Calculate("val-1", "sec-1", []detail.ContentBlock{base}, []detail.ContentBlock{current})

			require.Len(t, got, 1)
			assert.Equal(t, ActionUpdate, got[0].Action)
			assert.Equal(t, "a", got[0].DetailID)
			assert.Equal(t, current.Content, got[0].Payload.Content)
		})
	}
}

func TestCalculateFormatOnlyUpdate(t *testing.T) {
	original := []detail.ContentBlock{block("x", 1, "<p>Hi</p>")}
	updated := block("x", 1, "<p>Hi</p>")
	updated.Bold = true

	got := Calculate("val-1", "sec-1", original, []detail.ContentBlock{updated})

	require.Len(t, got, 1)
	assert.Equal(t, ActionUpdate, got[0].Action)
	assert.True(t, got[0].Payload.Bold)
	assert.Equal(t, "<p>Hi</p>", got[0].Payload.Content)
}

func TestCalculateDiffCompleteness(t *testing.T) {
	original := []detail.ContentBlock{
		block("a", 1, "<p>A</p>"),
		block("b", 2, "<p>B</p>"),
		block("c", 3, "<p>C</p>"),
	}
	current := []detail.ContentBlock{
		block("a", 1, "<p>A</p>"),
		block("d", 2, "<p>D</p>"),
		block("c", 3, "<p>C changed</p>"),
		block("e", 4, "<p>E</p>"),
	}

	got := Calculate("val-1", "sec-1", original, current)

	counts := Summarize(got)
	assert.Equal(t, Summary{Created: 2, Updated: 1, Deleted: 1}, counts)
	assert.Equal(t, 4, counts.Total())

	actions := make([]Action, len(got))
	for i, r := range got {
		actions[i] = r.Action
	}
	assert.Equal(t, []Action{ActionDelete, ActionCreate, ActionUpdate, ActionCreate}, actions)
}

func TestCalculatePayloadIsIndependent(t *testing.T) {
	current := []detail.ContentBlock{{ID: "a", Indent: detail.IntPtr(1)}}
	got := Calculate("val-1", "sec-1", nil, current)
	*got[0].Payload.Indent = 4
	assert.Equal(t, 1, *current[0].Indent)
}

func TestAggregateSkipsMalformed(t *testing.T) {
	tracking := NewTracking()
	tracking.Set(&SectionState{
		SectionID: "sec-1",
		Original:  []detail.ContentBlock{block("a", 1, "<p>A</p>")},
		Current:   []detail.ContentBlock{},
	})
	tracking.Set(&SectionState{SectionID: "broken", Current: []detail.ContentBlock{block("z", 1, "")}})
	tracking.Set(&SectionState{
		SectionID: "sec-2",
		Original:  []detail.ContentBlock{},
		Current:   []detail.ContentBlock{{ID: "n", SectionID: "sec-2", Content: "<p>N</p>"}},
	})

	got := Aggregate("val-1", tracking)

	require.Len(t, got, 2)
	assert.Equal(t, ActionDelete, got[0].Action)
	assert.Equal(t, "sec-1", got[0].SectionID)
	assert.Equal(t, ActionCreate, got[1].Action)
	assert.Equal(t, "sec-2", got[1].SectionID)
}

func TestAggregateNil(t *testing.T) {
	assert.Empty(t, Aggregate("val-1", nil))
	assert.Empty(t, Aggregate("val-1", NewTracking()))
}

func TestHasChanges(t *testing.T) {
	original := []detail.ContentBlock{block("a", 1, "<p>A</p>")}
	tracking := NewTracking()
	tracking.Set(&SectionState{
		SectionID: "sec-1",
		Original:  original,
		Current:   detail.Clone(original),
		Markup:    detail.Encode(original),
	})
	assert.False(t, HasChanges(tracking))

	state, _ := tracking.Get("sec-1")
	state.Markup = `<p data-detail-id="a">A edited</p>`
	assert.True(t, HasChanges(tracking))

	assert.False(t, HasChanges(nil))
}

func TestTrackingOrder(t *testing.T) {
	tracking := NewTracking()
	tracking.Set(&SectionState{SectionID: "b"})
	tracking.Set(&SectionState{SectionID: "a"})
	tracking.Set(&SectionState{SectionID: "b", Markup: "replaced"})

	assert.Equal(t, []string{"b", "a"}, tracking.Sections())
	state, ok := tracking.Get("b")
	require.True(t, ok)
	assert.Equal(t, "replaced", state.Markup)

	tracking.Retain("a")
	assert.Equal(t, []string{"a"}, tracking.Sections())

	tracking.Clear()
	assert.Equal(t, 0, tracking.Len())
}
