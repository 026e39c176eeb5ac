package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTemplate ResultType = "template"
	ResultComment  ResultType = "comment"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	SectionID string     `json:"sectionId"`
	ValID     string     `json:"valId,omitempty"`
	Status    string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterSectionID string
	FilterValID     string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexTemplate(t TemplateRecord) error
	IndexComment(c CommentRecord) error
	DeleteTemplate(id string) error
}

// TemplateRecord is the data we index for a library paragraph. Text is the
// paragraph with markup removed.
type TemplateRecord struct {
	ID        string `json:"id"`
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

// CommentRecord is the data we index for a comment.
type CommentRecord struct {
	ID        string `json:"id"`
	ValID     string `json:"valId"`
	SectionID string `json:"sectionId"`
	DetailID  string `json:"detailId"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	Author    string `json:"author"`
}
