package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

func TestTemplateBlockIsUnsavedCopy(t *testing.T) {
	tpl := Template{
		ID:        "tpl_1",
		SectionID: "closing",
		Content:   "<p>Sincerely,</p>",
		Bold:      true,
		Indent:    detail.IntPtr(2),
	}

	block := tpl.Block()

	assert.Empty(t, block.ID)
	assert.Equal(t, "closing", block.SectionID)
	assert.True(t, block.Bold)
	*block.Indent = 4
	assert.Equal(t, 2, *tpl.Indent)
	assert.Nil(t, block.BlankLineAfter)
}

func TestNullableHelpers(t *testing.T) {
	assert.False(t, nullInt(nil).Valid)
	assert.Equal(t, int64(3), nullInt(detail.IntPtr(3)).Int64)
	assert.Nil(t, intPtr(nullInt(nil)))
	assert.Equal(t, 3, *intPtr(nullInt(detail.IntPtr(3))))
	assert.False(t, nullTime(nil).Valid)
}

func TestValBracketContext(t *testing.T) {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	v := Val{
		ID:          "val-1",
		Name:        "Acme 2026",
		PlanName:    "Acme 401(k)",
		PlanYearEnd: &end,
		Attributes:  map[string]any{"sponsor": map[string]any{"name": "Acme Corp"}},
	}

	ctx, err := v.BracketContext()
	require.NoError(t, err)
	assert.True(t, ctx.Val.PlanYearBegin.IsZero())
	assert.Equal(t, end, ctx.Val.PlanYearEnd)
	assert.Equal(t, "Acme Corp", bracket.Lookup(ctx.Data, "sponsor.name"))
	assert.Equal(t, "Acme 401(k)", bracket.Lookup(ctx.Data, "val.planName"))

	mappings := []bracket.Mapping{{TagName: "PYE", IsSystemTag: true}, {TagName: "Plan", ObjectPath: "val.planName"}}
	assert.Equal(t, "[[Plan: Acme 401(k)]] ends [[PYE: 12/31/2026]]", bracket.Resolve("[[Plan]] ends [[PYE]]", ctx, mappings))
}

func TestValBracketContextWithoutAttributes(t *testing.T) {
	ctx, err := Val{ID: "val-2", Name: "Bare"}.BracketContext()
	require.NoError(t, err)
	assert.Equal(t, "Bare", bracket.Lookup(ctx.Data, "val.name"))
}
