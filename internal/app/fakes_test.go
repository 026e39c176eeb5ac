package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/changes"
	"github.com/rickylandino/val-builder-sub000/internal/config"
	"github.com/rickylandino/val-builder-sub000/internal/detail"
	"github.com/rickylandino/val-builder-sub000/internal/gitrepo"
	"github.com/rickylandino/val-builder-sub000/internal/session"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

// memStore is an in-memory dataStore.
type memStore struct {
	mu        sync.Mutex
	vals      map[string]store.Val
	sections  []store.Section
	details   []detail.ContentBlock
	templates []store.Template
	mappings  []bracket.Mapping
	comments  []store.Comment
	pingErr   error
	applyErr  error
	applied   [][]changes.Record

	// listErr fails the next ListDetails call only.
	listErr error
}

func newMemStore() *memStore {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return &memStore{
		vals: map[string]store.Val{
			"val-1": {ID: "val-1", Name: "Acme 2026", PlanName: "Acme 401(k)", Status: "DRAFT", PlanYearEnd: &end},
		},
		sections: []store.Section{
			{ID: "introduction", Title: "Introduction", DisplayOrder: 1},
			{ID: "closing", Title: "Closing", DisplayOrder: 2},
		},
		details: []detail.ContentBlock{
			{ID: "d1", ValID: "val-1", SectionID: "introduction", Content: "<p>First</p>", DisplayOrder: 1},
			{ID: "d2", ValID: "val-1", SectionID: "introduction", Content: "<p>Second</p>", DisplayOrder: 2, Bold: true},
			{ID: "d3", ValID: "val-1", SectionID: "closing", Content: "<p>Sincerely,</p>", DisplayOrder: 1},
		},
		templates: []store.Template{
			{ID: "tpl-1", SectionID: "closing", Title: "Signature", Content: "<p>Avery Lee, ASA</p>", DisplayOrder: 1, Center: true},
		},
		mappings: []bracket.Mapping{
			{TagName: "PYE", IsSystemTag: true},
			{TagName: "Plan", ObjectPath: "val.planName"},
		},
	}
}

func (m *memStore) ListVals(context.Context) ([]store.Val, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Val, 0, len(m.vals))
	for _, v := range m.vals {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetVal(_ context.Context, valID string) (store.Val, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[valID]
	if !ok {
		return store.Val{}, fmt.Errorf("val %s: %w", valID, store.ErrNotFound)
	}
	return v, nil
}

func (m *memStore) InsertVal(_ context.Context, item store.Val) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[item.ID] = item
	return nil
}

func (m *memStore) ListSections(context.Context) ([]store.Section, error) {
	return m.sections, nil
}

func (m *memStore) ListDetails(_ context.Context, valID string) ([]detail.ContentBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr; err != nil {
		m.listErr = nil
		return nil, err
	}
	out := make([]detail.ContentBlock, 0)
	for _, block := range m.details {
		if block.ValID == valID {
			out = append(out, block)
		}
	}
	return detail.Clone(out), nil
}

func (m *memStore) ApplyChanges(_ context.Context, valID, _ string, records []changes.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	next := detail.Clone(m.details)
	for _, record := range records {
		switch record.Action {
		case changes.ActionDelete:
			kept := next[:0]
			for _, block := range next {
				if block.ID != record.DetailID {
					kept = append(kept, block)
				}
			}
			next = kept
		case changes.ActionCreate:
			block := *record.Payload
			block.ValID = valID
			next = append(next, block)
		case changes.ActionUpdate:
			found := false
			for i := range next {
				if next[i].ID == record.DetailID {
					next[i] = *record.Payload
					found = true
				}
			}
			if !found {
				return fmt.Errorf("detail %s: %w", record.DetailID, store.ErrNotFound)
			}
		}
	}
	m.details = next
	m.applied = append(m.applied, records)
	return nil
}

func (m *memStore) ListTemplates(_ context.Context, sectionID string) ([]store.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Template, 0)
	for _, item := range m.templates {
		if sectionID == "" || item.SectionID == sectionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) GetTemplate(_ context.Context, templateID string) (store.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.templates {
		if item.ID == templateID {
			return item, nil
		}
	}
	return store.Template{}, fmt.Errorf("template %s: %w", templateID, store.ErrNotFound)
}

func (m *memStore) InsertTemplate(_ context.Context, item store.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, item)
	return nil
}

func (m *memStore) ListBracketMappings(context.Context) ([]bracket.Mapping, error) {
	return m.mappings, nil
}

func (m *memStore) ListComments(_ context.Context, valID string) ([]store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Comment, 0)
	for _, item := range m.comments {
		if item.ValID == valID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) InsertComment(_ context.Context, item store.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, item)
	return nil
}

func (m *memStore) InsertCommentReply(_ context.Context, reply store.CommentReply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == reply.CommentID {
			m.comments[i].Replies = append(m.comments[i].Replies, reply)
			return nil
		}
	}
	return fmt.Errorf("comment %s: %w", reply.CommentID, store.ErrNotFound)
}

func (m *memStore) ResolveComment(_ context.Context, commentID, resolvedBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == commentID && m.comments[i].Status == "OPEN" {
			m.comments[i].Status = "RESOLVED"
			m.comments[i].ResolvedBy = resolvedBy
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) storedDetail(id string) (detail.ContentBlock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, block := range m.details {
		if block.ID == id {
			return block, true
		}
	}
	return detail.ContentBlock{}, false
}

type testEnv struct {
	store  *memStore
	gate   *session.RedisStore
	redis  *miniredis.Miniredis
	git    *gitrepo.Service
	svc    *Service
	server *HTTPServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	gate, err := session.NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = gate.Close() })

	ms := newMemStore()
	git := gitrepo.New(t.TempDir())
	cfg := config.Config{SessionTTL: time.Hour, SaveLockTTL: 30 * time.Second}
	svc := New(cfg, ms, Deps{Gate: gate, Git: git})
	return &testEnv{
		store:  ms,
		gate:   gate,
		redis:  mr,
		git:    git,
		svc:    svc,
		server: NewHTTPServer(svc, "*"),
	}
}
