package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili Backend
	pgfts Searcher
}

// Backend is the Meilisearch side of the service: searchable and indexable.
type Backend interface {
	Searcher
	Indexer
	IndexTemplates([]TemplateRecord) error
	IndexComments([]CommentRecord) error
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{}
	if meili != nil {
		s.meili = meili
	}
	if pgfts != nil {
		s.pgfts = pgfts
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) indexing() bool {
	return s.meili != nil && s.meili.Healthy()
}

// IndexTemplate indexes a library paragraph (fire-and-forget to Meilisearch).
func (s *Service) IndexTemplate(t TemplateRecord) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.IndexTemplate(t); err != nil {
			log.Printf("search: index template %s: %v", t.ID, err)
		}
	}()
}

// IndexComment indexes a comment (fire-and-forget to Meilisearch).
func (s *Service) IndexComment(c CommentRecord) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.IndexComment(c); err != nil {
			log.Printf("search: index comment %s: %v", c.ID, err)
		}
	}()
}

// DeleteTemplate removes a library paragraph from the index (fire-and-forget).
func (s *Service) DeleteTemplate(id string) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.meili.DeleteTemplate(id); err != nil {
			log.Printf("search: delete template %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes every record to Meilisearch synchronously.
func (s *Service) ReindexAll(templates []TemplateRecord, comments []CommentRecord) {
	if !s.indexing() {
		return
	}
	if len(templates) > 0 {
		if err := s.meili.IndexTemplates(templates); err != nil {
			log.Printf("search: reindex templates: %v", err)
		}
	}
	if len(comments) > 0 {
		if err := s.meili.IndexComments(comments); err != nil {
			log.Printf("search: reindex comments: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into
// Meilisearch. It reports how many records were pushed.
func (s *Service) ReindexAllFromPG(ctx context.Context) (int, error) {
	if !s.indexing() {
		return 0, nil
	}
	loader, ok := s.pgfts.(interface {
		LoadAllRecords(context.Context) ([]TemplateRecord, []CommentRecord, error)
	})
	if !ok {
		return 0, nil
	}
	templates, comments, err := loader.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return 0, err
	}
	s.ReindexAll(templates, comments)
	return len(templates) + len(comments), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
