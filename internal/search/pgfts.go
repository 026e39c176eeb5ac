package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rickylandino/val-builder-sub000/internal/detail"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres there is nothing to serve.
func (p *PgFTS) Healthy() bool {
	return true
}

type pgQuery struct {
	count string
	data  string
	args  []any
}

func buildPgQuery(q Query) (pgQuery, bool) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if (q.FilterType == "" && q.FilterValID == "") || q.FilterType == ResultTemplate {
		where := "t.fts @@ " + tsQuery
		if q.FilterSectionID != "" {
			where += fmt.Sprintf(" AND t.section_id = $%d", argN)
			args = append(args, q.FilterSectionID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'template'::text AS type, t.id, t.title,
				ts_headline('english', regexp_replace(t.content, '<[^>]+>', ' ', 'g'), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.section_id, ''::text AS val_id, ''::text AS status,
				ts_rank(t.fts, %s) AS rank
			FROM section_templates t
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultComment {
		where := "c.fts @@ " + tsQuery
		if q.FilterSectionID != "" {
			where += fmt.Sprintf(" AND c.section_id = $%d", argN)
			args = append(args, q.FilterSectionID)
			argN++
		}
		if q.FilterValID != "" {
			where += fmt.Sprintf(" AND c.val_id = $%d", argN)
			args = append(args, q.FilterValID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'comment'::text AS type, c.id, c.author_name AS title,
				ts_headline('english', c.body, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				COALESCE(c.section_id, ''), c.val_id, c.status,
				ts_rank(c.fts, %s) AS rank
			FROM comments c
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return pgQuery{}, false
	}

	union := strings.Join(subQueries, " UNION ALL ")
	return pgQuery{
		count: fmt.Sprintf("SELECT count(*) FROM (%s) sub", union),
		data: fmt.Sprintf(`SELECT type, id, title, snippet, section_id, val_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset),
		args: args,
	}, true
}

// Search executes a UNION ALL query across library paragraphs and comments
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	built, ok := buildPgQuery(q)
	if !ok {
		return nil, 0, nil
	}

	var total int
	if err := p.db.QueryRowContext(ctx, built.count, built.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, built.data, built.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.SectionID, &r.ValID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]TemplateRecord, []CommentRecord, error) {
	templateRows, err := p.db.QueryContext(ctx, `
		SELECT id, section_id, title, content
		FROM section_templates
		ORDER BY section_id, display_order
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}
	defer templateRows.Close()

	templates := make([]TemplateRecord, 0)
	for templateRows.Next() {
		var (
			t       TemplateRecord
			content string
		)
		if err := templateRows.Scan(&t.ID, &t.SectionID, &t.Title, &content); err != nil {
			return nil, nil, fmt.Errorf("scan template: %w", err)
		}
		t.Text = detail.PlainText(content)
		templates = append(templates, t)
	}
	if err := templateRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate templates: %w", err)
	}

	commentRows, err := p.db.QueryContext(ctx, `
		SELECT id, val_id, COALESCE(section_id, ''), COALESCE(detail_id, ''), body, status, author_name
		FROM comments
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load comments: %w", err)
	}
	defer commentRows.Close()

	comments := make([]CommentRecord, 0)
	for commentRows.Next() {
		var c CommentRecord
		if err := commentRows.Scan(&c.ID, &c.ValID, &c.SectionID, &c.DetailID, &c.Body, &c.Status, &c.Author); err != nil {
			return nil, nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := commentRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate comments: %w", err)
	}

	return templates, comments, nil
}
