// Package bracket substitutes [[Tag]] placeholders in VAL text with values
// computed from the VAL's plan dates or looked up in a context document.
package bracket

import (
	"log"
	"regexp"
	"strings"
	"time"
)

// Mapping registers one placeholder. System tags are computed by a built-in
// handler; every other tag reads ObjectPath from the resolution context.
type Mapping struct {
	TagName     string `json:"tagName" yaml:"tag"`
	IsSystemTag bool   `json:"isSystemTag" yaml:"system,omitempty"`
	ObjectPath  string `json:"objectPath,omitempty" yaml:"path,omitempty"`
}

// ValMeta carries the plan-year dates system tags are computed from. A zero
// time means the date is unknown.
type ValMeta struct {
	PlanYearBegin time.Time
	PlanYearEnd   time.Time
}

// Context is everything a resolution can read.
type Context struct {
	Val  ValMeta
	Data map[string]any
}

// DateLayout renders dates as MM/DD/YYYY.
const DateLayout = "01/02/2006"

var tokenPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// Token returns the literal placeholder for a tag name.
func Token(tagName string) string {
	return "[[" + tagName + "]]"
}

func resolved(tagName, value string) string {
	return "[[" + tagName + ": " + value + "]]"
}

// Resolve replaces every occurrence of every mapped token in text. Tokens with
// no mapping are left as they are.
func Resolve(text string, ctx Context, mappings []Mapping) string {
	for _, m := range mappings {
		if m.TagName == "" {
			continue
		}
		token := Token(m.TagName)
		if !strings.Contains(text, token) {
			continue
		}
		replacement, ok := replacementFor(m, ctx)
		if !ok {
			continue
		}
		text = strings.ReplaceAll(text, token, replacement)
	}
	return text
}

func replacementFor(m Mapping, ctx Context) (string, bool) {
	if !m.IsSystemTag {
		return resolved(m.TagName, Lookup(ctx.Data, m.ObjectPath)), true
	}
	handler, ok := systemHandlers[m.TagName]
	if !ok {
		log.Printf("bracket: no handler registered for system tag %q", m.TagName)
		return "", false
	}
	date, ok := handler(ctx.Val)
	if !ok {
		log.Printf("bracket: system tag %q has no plan date to resolve from", m.TagName)
		return "", false
	}
	return resolved(m.TagName, date.Format(DateLayout)), true
}

// Tokens lists the distinct tag names that still appear unresolved in text,
// in order of first appearance.
func Tokens(text string) []string {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if strings.Contains(name, ": ") {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
