package export

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetVal(ctx context.Context, valID string) (store.Val, error)
	ListSections(ctx context.Context) ([]store.Section, error)
	ListDetails(ctx context.Context, valID string) ([]detail.ContentBlock, error)
	ListBracketMappings(ctx context.Context) ([]bracket.Mapping, error)
	ListComments(ctx context.Context, valID string) ([]store.Comment, error)
}

// Archiver keeps a copy of rendered output in object storage.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Service provides VAL preview and export
type Service struct {
	store    DataStore
	archiver Archiver
	now      func() time.Time

	pdf  func(ctx context.Context, html, title string) (*Result, error)
	docx func(ctx context.Context, html, title string) (*Result, error)
}

// NewService creates a new export service. archiver may be nil.
func NewService(store DataStore, archiver Archiver) *Service {
	return &Service{
		store:    store,
		archiver: archiver,
		now:      time.Now,
		pdf:      exportPDF,
		docx:     exportDOCX,
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	data, err := s.buildTemplateData(ctx, req)
	if err != nil {
		return nil, err
	}

	html, err := RenderValHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var result *Result
	switch req.Format {
	case FormatHTML:
		result = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(data.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	case FormatPDF:
		result, err = s.pdf(ctx, html, data.Title)
	case FormatDOCX:
		result, err = s.docx(ctx, html, data.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return nil, err
	}
	result.RenderedAt = data.RenderedAt

	if req.Archive && req.Format == FormatPDF && s.archiver != nil {
		key := ArchiveKey(req.ValID, data.RenderedAt)
		if err := s.archiver.Put(ctx, key, result.Data, result.MimeType); err != nil {
			log.Printf("export: archive %s: %v", key, err)
		} else {
			result.ArchiveKey = key
		}
	}
	return result, nil
}

// ArchiveKey is where an archived PDF of valID rendered at t is stored.
func ArchiveKey(valID string, t time.Time) string {
	return fmt.Sprintf("vals/%s/%s.pdf", valID, t.UTC().Format("20060102T150405Z"))
}

func (s *Service) buildTemplateData(ctx context.Context, req Request) (TemplateData, error) {
	val, err := s.store.GetVal(ctx, req.ValID)
	if err != nil {
		return TemplateData{}, fmt.Errorf("get val: %w", err)
	}
	sections, err := s.store.ListSections(ctx)
	if err != nil {
		return TemplateData{}, fmt.Errorf("list sections: %w", err)
	}
	details, err := s.store.ListDetails(ctx, req.ValID)
	if err != nil {
		return TemplateData{}, fmt.Errorf("list details: %w", err)
	}
	mappings, err := s.store.ListBracketMappings(ctx)
	if err != nil {
		return TemplateData{}, fmt.Errorf("list bracket mappings: %w", err)
	}
	bctx, err := val.BracketContext()
	if err != nil {
		return TemplateData{}, err
	}

	data := TemplateData{
		Title:      val.Name,
		PlanName:   val.PlanName,
		Status:     val.Status,
		Author:     val.UpdatedBy,
		UpdatedAt:  val.UpdatedAt,
		RenderedAt: s.now().UTC(),
		Sections:   []TemplateSection{},
		Comments:   []TemplateComment{},
	}

	titles := make(map[string]string, len(sections))
	for _, sec := range sections {
		titles[sec.ID] = sec.Title
		blocks := detail.FilterSection(details, sec.ID)
		if len(blocks) == 0 {
			continue
		}
		data.Sections = append(data.Sections, TemplateSection{
			ID:          sec.ID,
			Title:       sec.Title,
			ContentHTML: template.HTML(RenderSection(blocks, bctx, mappings)),
		})
	}

	if req.IncludeComments {
		comments, err := s.store.ListComments(ctx, req.ValID)
		if err != nil {
			return TemplateData{}, fmt.Errorf("list comments: %w", err)
		}
		for _, c := range comments {
			item := TemplateComment{
				Section: titles[c.SectionID],
				Body:    c.Body,
				Author:  c.Author,
				Status:  c.Status,
				Replies: []TemplateReply{},
			}
			for _, r := range c.Replies {
				item.Replies = append(item.Replies, TemplateReply{Author: r.Author, Body: r.Body})
			}
			data.Comments = append(data.Comments, item)
		}
	}
	return data, nil
}

// RenderSection renders a section's paragraphs in display order with bracket
// tags resolved. Each blank line after a paragraph becomes an empty spacer.
func RenderSection(blocks []detail.ContentBlock, ctx bracket.Context, mappings []bracket.Mapping) string {
	var b strings.Builder
	for _, block := range detail.SortByDisplayOrder(blocks) {
		block.Content = bracket.Resolve(block.Content, ctx, mappings)
		b.WriteString(detail.Render(block))
		if block.BlankLineAfter != nil {
			for i := 0; i < *block.BlankLineAfter; i++ {
				b.WriteString(`<p class="blank-line">&nbsp;</p>`)
			}
		}
	}
	return b.String()
}
