package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/config"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
	"github.com/rickylandino/val-builder-sub000/internal/export"
	"github.com/rickylandino/val-builder-sub000/internal/gitrepo"
	"github.com/rickylandino/val-builder-sub000/internal/search"
	"github.com/rickylandino/val-builder-sub000/internal/session"
	"github.com/rickylandino/val-builder-sub000/internal/store"
	"github.com/rickylandino/val-builder-sub000/internal/util"
)

type dataStore interface {
	ListVals(context.Context) ([]store.Val, error)
	GetVal(context.Context, string) (store.Val, error)
	InsertVal(context.Context, store.Val) error
	ListSections(context.Context) ([]store.Section, error)
	ListDetails(context.Context, string) ([]detail.ContentBlock, error)
	ApplyChanges(context.Context, string, string, []changes.Record) error
	ListTemplates(context.Context, string) ([]store.Template, error)
	GetTemplate(context.Context, string) (store.Template, error)
	InsertTemplate(context.Context, store.Template) error
	ListBracketMappings(context.Context) ([]bracket.Mapping, error)
	ListComments(context.Context, string) ([]store.Comment, error)
	InsertComment(context.Context, store.Comment) error
	InsertCommentReply(context.Context, store.CommentReply) error
	ResolveComment(context.Context, string, string) (bool, error)
	Ping(ctx context.Context) error
}

type saveGate interface {
	AcquireSaveLock(ctx context.Context, valID, owner string, ttl time.Duration) error
	ReleaseSaveLock(ctx context.Context, valID, owner string) (bool, error)
	RecordSave(ctx context.Context, valID string, record session.SaveRecord) error
	LastSave(ctx context.Context, valID string) (session.SaveRecord, bool, error)
}

type gitService interface {
	Commit(string, gitrepo.Content, string, string) (store.CommitInfo, error)
	History(string, int) ([]store.CommitInfo, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexTemplate(search.TemplateRecord)
	IndexComment(search.CommentRecord)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

// Deps are the optional integrations. A nil field disables that integration.
type Deps struct {
	Gate     saveGate
	Git      gitService
	Search   searchService
	Exporter exporter
}

type Service struct {
	cfg      config.Config
	store    dataStore
	gate     saveGate
	git      gitService
	search   searchService
	exporter exporter
	now      func() time.Time

	sessionTTL time.Duration
	sessionsMu sync.Mutex
	sessions   map[string]*editSession
}

func New(cfg config.Config, dataStore dataStore, deps Deps) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{
		cfg:        cfg,
		store:      dataStore,
		gate:       deps.Gate,
		git:        deps.Git,
		search:     deps.Search,
		exporter:   deps.Exporter,
		now:        time.Now,
		sessionTTL: ttl,
		sessions:   make(map[string]*editSession),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var allowedValStatus = map[string]struct{}{
	"DRAFT":     {},
	"IN_REVIEW": {},
	"FINAL":     {},
}

type CreateValInput struct {
	Name          string         `json:"name"`
	PlanName      string         `json:"planName"`
	PlanYearBegin string         `json:"planYearBegin"`
	PlanYearEnd   string         `json:"planYearEnd"`
	Status        string         `json:"status"`
	Attributes    map[string]any `json:"attributes"`
	Author        string         `json:"author"`
}

func (s *Service) ListVals(ctx context.Context) ([]store.Val, error) {
	return s.store.ListVals(ctx)
}

func (s *Service) GetVal(ctx context.Context, valID string) (store.Val, error) {
	return s.store.GetVal(ctx, valID)
}

func (s *Service) CreateVal(ctx context.Context, input CreateValInput) (store.Val, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return store.Val{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	status := strings.ToUpper(firstNonBlank(input.Status, "DRAFT"))
	if _, ok := allowedValStatus[status]; !ok {
		return store.Val{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status is invalid", map[string]any{"status": input.Status})
	}
	begin, err := parseDate("planYearBegin", input.PlanYearBegin)
	if err != nil {
		return store.Val{}, err
	}
	end, err := parseDate("planYearEnd", input.PlanYearEnd)
	if err != nil {
		return store.Val{}, err
	}

	item := store.Val{
		ID:            util.NewID("val"),
		Name:          name,
		PlanName:      strings.TrimSpace(input.PlanName),
		PlanYearBegin: begin,
		PlanYearEnd:   end,
		Status:        status,
		Attributes:    input.Attributes,
		UpdatedBy:     firstNonBlank(input.Author, "Unknown"),
	}
	if err := s.store.InsertVal(ctx, item); err != nil {
		return store.Val{}, err
	}
	return s.store.GetVal(ctx, item.ID)
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" must be YYYY-MM-DD", map[string]any{field: raw})
	}
	return &t, nil
}

func (s *Service) ListSections(ctx context.Context) ([]store.Section, error) {
	return s.store.ListSections(ctx)
}

func (s *Service) ListTemplates(ctx context.Context, sectionID string) ([]store.Template, error) {
	return s.store.ListTemplates(ctx, sectionID)
}

type CreateTemplateInput struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Bold            bool   `json:"bold"`
	Bullet          bool   `json:"bullet"`
	Center          bool   `json:"center"`
	TightLineHeight bool   `json:"tightLineHeight"`
	Indent          *int   `json:"indent"`
	BlankLineAfter  *int   `json:"blankLineAfter"`
}

// CreateTemplate adds a paragraph to a section's library.
func (s *Service) CreateTemplate(ctx context.Context, sectionID string, input CreateTemplateInput) (store.Template, error) {
	if strings.TrimSpace(input.Content) == "" {
		return store.Template{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	if err := validateSpacing(input.Indent, input.BlankLineAfter); err != nil {
		return store.Template{}, err
	}
	if err := s.requireSection(ctx, sectionID); err != nil {
		return store.Template{}, err
	}
	existing, err := s.store.ListTemplates(ctx, sectionID)
	if err != nil {
		return store.Template{}, err
	}

	item := store.Template{
		ID:              util.NewID("tpl"),
		SectionID:       sectionID,
		Title:           strings.TrimSpace(input.Title),
		Content:         input.Content,
		DisplayOrder:    len(existing) + 1,
		Bold:            input.Bold,
		Bullet:          input.Bullet,
		Center:          input.Center,
		TightLineHeight: input.TightLineHeight,
		Indent:          input.Indent,
		BlankLineAfter:  input.BlankLineAfter,
	}
	if err := s.store.InsertTemplate(ctx, item); err != nil {
		return store.Template{}, err
	}
	if s.search != nil {
		s.search.IndexTemplate(search.TemplateRecord{
			ID:        item.ID,
			SectionID: item.SectionID,
			Title:     item.Title,
			Text:      detail.PlainText(item.Content),
		})
	}
	return item, nil
}

func (s *Service) requireSection(ctx context.Context, sectionID string) error {
	sections, err := s.store.ListSections(ctx)
	if err != nil {
		return err
	}
	for _, section := range sections {
		if section.ID == sectionID {
			return nil
		}
	}
	return domainError(http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", map[string]any{"sectionId": sectionID})
}

func validateSpacing(indent, blankLineAfter *int) error {
	if indent != nil && (*indent < 0 || *indent > detail.MaxIndent) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("indent must be between 0 and %d", detail.MaxIndent), nil)
	}
	if blankLineAfter != nil && *blankLineAfter < 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "blankLineAfter must not be negative", nil)
	}
	return nil
}

func (s *Service) ListBracketMappings(ctx context.Context) ([]bracket.Mapping, error) {
	return s.store.ListBracketMappings(ctx)
}

// ResolveResult is resolved text plus the tags that had no mapping.
type ResolveResult struct {
	Text       string   `json:"text"`
	Unresolved []string `json:"unresolved"`
}

// ResolveBrackets substitutes bracket tags in text using valID's plan data.
func (s *Service) ResolveBrackets(ctx context.Context, valID, text string) (ResolveResult, error) {
	val, err := s.store.GetVal(ctx, valID)
	if err != nil {
		return ResolveResult{}, err
	}
	mappings, err := s.store.ListBracketMappings(ctx)
	if err != nil {
		return ResolveResult{}, err
	}
	bctx, err := val.BracketContext()
	if err != nil {
		return ResolveResult{}, err
	}
	resolved := bracket.Resolve(text, bctx, mappings)
	return ResolveResult{Text: resolved, Unresolved: bracket.Tokens(resolved)}, nil
}

type CreateCommentInput struct {
	SectionID string `json:"sectionId"`
	DetailID  string `json:"detailId"`
	Body      string `json:"body"`
	Author    string `json:"author"`
}

type CommentReplyInput struct {
	Body   string `json:"body"`
	Author string `json:"author"`
}

func (s *Service) ListComments(ctx context.Context, valID string) ([]store.Comment, error) {
	if _, err := s.store.GetVal(ctx, valID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, valID)
}

func (s *Service) CreateComment(ctx context.Context, valID string, input CreateCommentInput) (store.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return store.Comment{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body is required", nil)
	}
	if _, err := s.store.GetVal(ctx, valID); err != nil {
		return store.Comment{}, err
	}
	item := store.Comment{
		ID:        util.NewID("cmt"),
		ValID:     valID,
		SectionID: strings.TrimSpace(input.SectionID),
		DetailID:  strings.TrimSpace(input.DetailID),
		Body:      body,
		Status:    "OPEN",
		Author:    firstNonBlank(input.Author, "Unknown"),
		CreatedAt: s.now().UTC(),
		Replies:   []store.CommentReply{},
	}
	if err := s.store.InsertComment(ctx, item); err != nil {
		return store.Comment{}, err
	}
	if s.search != nil {
		s.search.IndexComment(search.CommentRecord{
			ID:        item.ID,
			ValID:     item.ValID,
			SectionID: item.SectionID,
			DetailID:  item.DetailID,
			Body:      item.Body,
			Status:    item.Status,
			Author:    item.Author,
		})
	}
	return item, nil
}

func (s *Service) ReplyToComment(ctx context.Context, commentID string, input CommentReplyInput) (store.CommentReply, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return store.CommentReply{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body is required", nil)
	}
	reply := store.CommentReply{
		ID:        util.NewID("rpl"),
		CommentID: commentID,
		Body:      body,
		Author:    firstNonBlank(input.Author, "Unknown"),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertCommentReply(ctx, reply); err != nil {
		return store.CommentReply{}, err
	}
	return reply, nil
}

// ResolveComment marks a comment resolved. Resolving twice is a conflict.
func (s *Service) ResolveComment(ctx context.Context, commentID, author string) error {
	ok, err := s.store.ResolveComment(ctx, commentID, firstNonBlank(author, "Unknown"))
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusConflict, "COMMENT_NOT_OPEN", "Comment is missing or already resolved", map[string]any{"commentId": commentID})
	}
	return nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil || strings.TrimSpace(q.Text) == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) Preview(ctx context.Context, req export.Request) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	return s.exporter.Export(ctx, req)
}

// HistoryResult is the revision log of a VAL plus the last save seen by the gate.
type HistoryResult struct {
	Commits  []store.CommitInfo  `json:"commits"`
	LastSave *session.SaveRecord `json:"lastSave"`
}

func (s *Service) History(ctx context.Context, valID string, limit int) (HistoryResult, error) {
	if _, err := s.store.GetVal(ctx, valID); err != nil {
		return HistoryResult{}, err
	}
	result := HistoryResult{Commits: []store.CommitInfo{}}
	if s.git != nil {
		commits, err := s.git.History(valID, limit)
		if err != nil {
			return HistoryResult{}, err
		}
		result.Commits = commits
	}
	if s.gate != nil {
		record, ok, err := s.gate.LastSave(ctx, valID)
		if err != nil {
			log.Printf("app: last save lookup for %s failed: %v", valID, err)
		} else if ok {
			result.LastSave = &record
		}
	}
	return result, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
