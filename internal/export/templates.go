package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var valTemplate = template.Must(
	template.New("val.html").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
	}).ParseFS(templateFS, "templates/val.html"),
)

// TemplateData holds data for letter rendering
type TemplateData struct {
	Title      string
	PlanName   string
	Status     string
	Author     string
	UpdatedAt  time.Time
	RenderedAt time.Time
	Sections   []TemplateSection
	Comments   []TemplateComment
}

// TemplateSection is one rendered letter section. ContentHTML is codec output
// and is trusted.
type TemplateSection struct {
	ID          string
	Title       string
	ContentHTML template.HTML
}

// TemplateComment holds comment data for the review appendix
type TemplateComment struct {
	Section string
	Body    string
	Author  string
	Status  string
	Replies []TemplateReply
}

type TemplateReply struct {
	Author string
	Body   string
}

// RenderValHTML renders the letter template with provided data
func RenderValHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := valTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
