package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/config"
	"github.com/rickylandino/val-builder-sub000/internal/export"
	"github.com/rickylandino/val-builder-sub000/internal/search"
)

type fakeSearch struct {
	templates []search.TemplateRecord
	comments  []search.CommentRecord
	queries   []search.Query
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) search.Response {
	f.queries = append(f.queries, q)
	return search.Response{
		Results: []search.Result{{Type: search.ResultTemplate, ID: "tpl-1", Title: "Signature"}},
		Total:   1,
		Query:   q.Text,
	}
}

func (f *fakeSearch) IndexTemplate(record search.TemplateRecord) {
	f.templates = append(f.templates, record)
}

func (f *fakeSearch) IndexComment(record search.CommentRecord) {
	f.comments = append(f.comments, record)
}

type fakeExporter struct {
	requests []export.Request
	err      error
}

func (f *fakeExporter) Export(_ context.Context, req export.Request) (*export.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &export.Result{Data: []byte("<html>preview</html>"), Filename: "Acme-2026.html", MimeType: "text/html; charset=utf-8"}, nil
}

func TestSessionsExpireAfterIdleTTL(t *testing.T) {
	ms := newMemStore()
	svc := New(config.Config{SessionTTL: time.Minute}, ms, Deps{})
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	view, err := svc.OpenSession(context.Background(), "val-1", OpenSessionInput{SectionID: "introduction"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if view.Author != "Unknown" {
		t.Errorf("author = %q", view.Author)
	}

	// Each access pushes the expiry out again.
	now = now.Add(50 * time.Second)
	if _, err := svc.GetSession(view.SessionID); err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	now = now.Add(50 * time.Second)
	if _, err := svc.GetSession(view.SessionID); err != nil {
		t.Fatalf("GetSession() after touch error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	_, err = svc.GetSession(view.SessionID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "SESSION_NOT_FOUND" {
		t.Fatalf("expected SESSION_NOT_FOUND, got %v", err)
	}
	if len(svc.sessions) != 0 {
		t.Fatalf("expired session not swept: %d left", len(svc.sessions))
	}
}

func TestSaveWithoutOptionalIntegrations(t *testing.T) {
	ms := newMemStore()
	svc := New(config.Config{}, ms, Deps{})

	view, err := svc.OpenSession(context.Background(), "val-1", OpenSessionInput{Author: "Avery", SectionID: "closing"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if _, err := svc.DeleteDetail(view.SessionID, "d3"); err != nil {
		t.Fatalf("DeleteDetail() error = %v", err)
	}

	result, err := svc.Save(context.Background(), view.SessionID)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Summary.Deleted != 1 || result.Commit != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := ms.storedDetail("d3"); ok {
		t.Fatal("d3 still stored")
	}

	history, err := svc.History(context.Background(), "val-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history.Commits) != 0 || history.LastSave != nil {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestSaveCheckpointsWhenReloadFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.svc.OpenSession(ctx, "val-1", OpenSessionInput{Author: "Avery", SectionID: "introduction"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if _, err := env.svc.ApplyMarkup(view.SessionID, view.Markup+"<p>Written once</p>"); err != nil {
		t.Fatalf("ApplyMarkup() error = %v", err)
	}

	env.store.listErr = errors.New("connection reset")
	result, err := env.svc.Save(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Summary.Created != 1 || result.Commit != nil || result.Session.HasPendingChanges {
		t.Fatalf("unexpected result %+v", result)
	}

	again, err := env.svc.Save(ctx, view.SessionID)
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if again.Summary != (changes.Summary{}) || len(env.store.applied) != 1 {
		t.Fatalf("retry re-applied changes: %+v, %d calls", again.Summary, len(env.store.applied))
	}

	stored, err := env.store.ListDetails(ctx, "val-1")
	if err != nil {
		t.Fatalf("ListDetails() error = %v", err)
	}
	var copies int
	for _, block := range stored {
		if strings.Contains(block.Content, "Written once") {
			copies++
		}
	}
	if copies != 1 {
		t.Fatalf("stored copies = %d, want 1", copies)
	}
}

func TestFormatOnlyPatchIsReportedPending(t *testing.T) {
	svc := New(config.Config{}, newMemStore(), Deps{})
	view, err := svc.OpenSession(context.Background(), "val-1", OpenSessionInput{SectionID: "introduction"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}

	blank := 2
	view, err = svc.PatchDetail(view.SessionID, "d1", DetailPatch{BlankLineAfter: optionalInt{Set: true, Value: &blank}})
	if err != nil {
		t.Fatalf("PatchDetail() error = %v", err)
	}
	if !view.HasPendingChanges {
		t.Fatal("blankLineAfter change not reported as pending")
	}

	pending, err := svc.PendingChanges(view.SessionID)
	if err != nil {
		t.Fatalf("PendingChanges() error = %v", err)
	}
	if pending.Summary.Updated != 1 {
		t.Fatalf("unexpected summary %+v", pending.Summary)
	}
}

func TestApplyMarkupIsDecodedLazily(t *testing.T) {
	svc := New(config.Config{}, newMemStore(), Deps{})
	view, err := svc.OpenSession(context.Background(), "val-1", OpenSessionInput{SectionID: "introduction"})
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}

	typed := view.Markup + "<p>Third</p>"
	view, err = svc.ApplyMarkup(view.SessionID, typed)
	if err != nil {
		t.Fatalf("ApplyMarkup() error = %v", err)
	}
	if len(view.Blocks) != 2 {
		t.Fatalf("blocks decoded eagerly: %d", len(view.Blocks))
	}

	view, err = svc.SyncMarkup(view.SessionID)
	if err != nil {
		t.Fatalf("SyncMarkup() error = %v", err)
	}
	if len(view.Blocks) != 3 || view.Blocks[2].DisplayOrder != 3 || view.Blocks[2].ID == "" {
		t.Fatalf("unexpected blocks after sync %+v", view.Blocks)
	}

	pending, err := svc.PendingChanges(view.SessionID)
	if err != nil {
		t.Fatalf("PendingChanges() error = %v", err)
	}
	if pending.Summary.Created != 1 || pending.Summary.Updated != 0 {
		t.Fatalf("unexpected summary %+v", pending.Summary)
	}
}

func TestCreateTemplateIndexesForSearch(t *testing.T) {
	ms := newMemStore()
	fs := &fakeSearch{}
	svc := New(config.Config{}, ms, Deps{Search: fs})

	_, err := svc.CreateTemplate(context.Background(), "appendix", CreateTemplateInput{Content: "<p>x</p>"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusNotFound {
		t.Fatalf("expected section not found, got %v", err)
	}

	indent := 5
	if _, err := svc.CreateTemplate(context.Background(), "closing", CreateTemplateInput{Content: "<p>x</p>", Indent: &indent}); err == nil {
		t.Fatal("expected indent validation error")
	}

	item, err := svc.CreateTemplate(context.Background(), "closing", CreateTemplateInput{Title: "Regards", Content: "<p>Kind <strong>regards</strong></p>"})
	if err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	if item.DisplayOrder != 2 || !strings.HasPrefix(item.ID, "tpl") {
		t.Fatalf("unexpected template %+v", item)
	}
	if len(fs.templates) != 1 || fs.templates[0].Text != "Kind regards" {
		t.Fatalf("unexpected index calls %+v", fs.templates)
	}

	if _, err := svc.CreateComment(context.Background(), "val-1", CreateCommentInput{Body: "Check", SectionID: "closing"}); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if len(fs.comments) != 1 || fs.comments[0].ValID != "val-1" || fs.comments[0].Status != "OPEN" {
		t.Fatalf("unexpected comment index calls %+v", fs.comments)
	}

	resp := svc.Search(context.Background(), search.Query{Text: "   "})
	if len(resp.Results) != 0 || len(fs.queries) != 0 {
		t.Fatal("blank query should not reach the backend")
	}
	resp = svc.Search(context.Background(), search.Query{Text: "regards"})
	if resp.Total != 1 || len(fs.queries) != 1 {
		t.Fatalf("unexpected search response %+v", resp)
	}
}

func TestPreviewEndpointStreamsExport(t *testing.T) {
	env := newTestEnv(t)
	fe := &fakeExporter{}
	env.svc.exporter = fe
	h := env.server.Handler()

	rr := doJSON(t, h, http.MethodGet, "/api/vals/val-1/preview?format=html&comments=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `inline; filename="Acme-2026.html"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rr.Body.String() != "<html>preview</html>" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if len(fe.requests) != 1 || !fe.requests[0].IncludeComments || fe.requests[0].ValID != "val-1" {
		t.Fatalf("unexpected export requests %+v", fe.requests)
	}

	fe.err = export.ErrPDFDependencyMissing
	rr = doJSON(t, h, http.MethodGet, "/api/vals/val-1/preview", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when chrome is missing, got %d", rr.Code)
	}
	if fe.requests[1].Format != export.FormatPDF {
		t.Errorf("default format = %q", fe.requests[1].Format)
	}
}
