package store

import (
	"fmt"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

// Val is one valuation letter.
type Val struct {
	ID            string
	Name          string
	PlanName      string
	PlanYearBegin *time.Time
	PlanYearEnd   *time.Time
	Status        string
	// Attributes is free-form plan data custom bracket tags resolve against.
	Attributes map[string]any
	UpdatedBy  string
	UpdatedAt  time.Time
}

// BracketContext builds what bracket tags in this VAL resolve against: the
// plan dates, the free-form attributes, and the VAL's own fields under "val".
func (v Val) BracketContext() (bracket.Context, error) {
	data, err := bracket.ContextData(v.Attributes)
	if err != nil {
		return bracket.Context{}, fmt.Errorf("bracket context: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	data["val"] = map[string]any{
		"id":       v.ID,
		"name":     v.Name,
		"planName": v.PlanName,
		"status":   v.Status,
	}

	var meta bracket.ValMeta
	if v.PlanYearBegin != nil {
		meta.PlanYearBegin = *v.PlanYearBegin
	}
	if v.PlanYearEnd != nil {
		meta.PlanYearEnd = *v.PlanYearEnd
	}
	return bracket.Context{Val: meta, Data: data}, nil
}

type Section struct {
	ID           string
	Title        string
	DisplayOrder int
}

// Template is a reusable paragraph from a section's library.
type Template struct {
	ID              string
	SectionID       string
	Title           string
	Content         string
	DisplayOrder    int
	Bold            bool
	Bullet          bool
	Center          bool
	TightLineHeight bool
	Indent          *int
	BlankLineAfter  *int
}

// Block returns the template as an unsaved detail.
func (t Template) Block() detail.ContentBlock {
	return detail.ContentBlock{
		SectionID:       t.SectionID,
		Content:         t.Content,
		Bold:            t.Bold,
		Bullet:          t.Bullet,
		Center:          t.Center,
		TightLineHeight: t.TightLineHeight,
		Indent:          cloneInt(t.Indent),
		BlankLineAfter:  cloneInt(t.BlankLineAfter),
	}
}

type Comment struct {
	ID         string
	ValID      string
	SectionID  string
	DetailID   string
	Body       string
	Status     string
	Author     string
	ResolvedBy string
	ResolvedAt *time.Time
	CreatedAt  time.Time
	Replies    []CommentReply
}

type CommentReply struct {
	ID        string
	CommentID string
	Body      string
	Author    string
	CreatedAt time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
