package detail

import (
	"html"
	"strings"
)

// The editor only ever hands back markup that this package produced or a
// paragraph the user typed, so the grammar handled here is deliberately small:
// elements, quoted or bare attributes, comments and text.

type attribute struct {
	Name  string
	Value string
}

type element struct {
	Tag   string
	Attrs []attribute
	Inner string
	Outer string
}

func (e element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

type tagKind int

const (
	tagOpen tagKind = iota
	tagClose
	tagComment
	tagDirective
)

type tagToken struct {
	kind        tagKind
	name        string
	attrs       []attribute
	selfClosing bool
	end         int
}

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {}, "img": {},
	"input": {}, "link": {}, "meta": {}, "source": {}, "track": {}, "wbr": {},
}

func isVoid(name string) bool {
	_, ok := voidElements[name]
	return ok
}

// topLevelElements splits markup into its top-level element nodes, in
// document order. Text, comments and stray closing tags at the top level are
// skipped.
func topLevelElements(markup string) []element {
	out := make([]element, 0)
	i := 0
	for i < len(markup) {
		lt := strings.IndexByte(markup[i:], '<')
		if lt < 0 {
			break
		}
		start := i + lt
		tok, ok := readTag(markup, start)
		if !ok {
			i = start + 1
			continue
		}
		if tok.kind != tagOpen {
			i = tok.end
			continue
		}
		if tok.selfClosing || isVoid(tok.name) {
			out = append(out, element{Tag: tok.name, Attrs: tok.attrs, Outer: markup[start:tok.end]})
			i = tok.end
			continue
		}
		closeStart, closeEnd := findClose(markup, tok.end, tok.name)
		if closeStart < 0 {
			out = append(out, element{Tag: tok.name, Attrs: tok.attrs, Inner: markup[tok.end:], Outer: markup[start:]})
			break
		}
		out = append(out, element{
			Tag:   tok.name,
			Attrs: tok.attrs,
			Inner: markup[tok.end:closeStart],
			Outer: markup[start:closeEnd],
		})
		i = closeEnd
	}
	return out
}

// singleElement returns the element when fragment consists of exactly one
// element and nothing else but whitespace.
func singleElement(fragment string) (element, bool) {
	trimmed := strings.TrimSpace(fragment)
	if !strings.HasPrefix(trimmed, "<") {
		return element{}, false
	}
	elements := topLevelElements(trimmed)
	if len(elements) != 1 || elements[0].Outer != trimmed {
		return element{}, false
	}
	return elements[0], true
}

// findClose locates the closing tag matching an element opened just before
// from, honoring nested elements of the same name.
func findClose(markup string, from int, name string) (int, int) {
	depth := 1
	i := from
	for i < len(markup) {
		lt := strings.IndexByte(markup[i:], '<')
		if lt < 0 {
			return -1, -1
		}
		start := i + lt
		tok, ok := readTag(markup, start)
		if !ok {
			i = start + 1
			continue
		}
		if tok.name == name {
			switch {
			case tok.kind == tagOpen && !tok.selfClosing:
				depth++
			case tok.kind == tagClose:
				depth--
				if depth == 0 {
					return start, tok.end
				}
			}
		}
		i = tok.end
	}
	return -1, -1
}

func readTag(s string, pos int) (tagToken, bool) {
	rest := s[pos:]
	if strings.HasPrefix(rest, "<!--") {
		end := strings.Index(rest[4:], "-->")
		if end < 0 {
			return tagToken{kind: tagComment, end: len(s)}, true
		}
		return tagToken{kind: tagComment, end: pos + 4 + end + 3}, true
	}
	if len(rest) < 2 {
		return tagToken{}, false
	}
	switch c := rest[1]; {
	case c == '!' || c == '?':
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return tagToken{kind: tagDirective, end: len(s)}, true
		}
		return tagToken{kind: tagDirective, end: pos + end + 1}, true
	case c == '/':
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return tagToken{}, false
		}
		name := strings.ToLower(strings.TrimSpace(rest[2:end]))
		return tagToken{kind: tagClose, name: name, end: pos + end + 1}, true
	case isNameStart(c):
		return readStartTag(s, pos)
	default:
		return tagToken{}, false
	}
}

func readStartTag(s string, pos int) (tagToken, bool) {
	i := pos + 1
	nameStart := i
	for i < len(s) && isNameChar(s[i]) {
		i++
	}
	tok := tagToken{kind: tagOpen, name: strings.ToLower(s[nameStart:i])}

	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return tagToken{}, false
		}
		switch s[i] {
		case '>':
			tok.end = i + 1
			return tok, true
		case '/':
			if i+1 < len(s) && s[i+1] == '>' {
				tok.selfClosing = true
				tok.end = i + 2
				return tok, true
			}
			i++
			continue
		}

		attrStart := i
		for i < len(s) && !isSpace(s[i]) && s[i] != '=' && s[i] != '>' && s[i] != '/' {
			i++
		}
		attr := attribute{Name: strings.ToLower(s[attrStart:i])}
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i < len(s) && s[i] == '=' {
			i++
			for i < len(s) && isSpace(s[i]) {
				i++
			}
			if i >= len(s) {
				return tagToken{}, false
			}
			if quote := s[i]; quote == '"' || quote == '\'' {
				end := strings.IndexByte(s[i+1:], quote)
				if end < 0 {
					return tagToken{}, false
				}
				attr.Value = html.UnescapeString(s[i+1 : i+1+end])
				i = i + 1 + end + 1
			} else {
				valueStart := i
				for i < len(s) && !isSpace(s[i]) && s[i] != '>' {
					i++
				}
				attr.Value = html.UnescapeString(s[valueStart:i])
			}
		}
		if attr.Name != "" {
			tok.attrs = append(tok.attrs, attr)
		}
	}
	return tagToken{}, false
}

func renderStartTag(tag string, attrs []attribute) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}

func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == ':'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// PlainText drops every tag and comment from fragment and collapses runs of
// whitespace. Block-level closes become a single space so adjacent paragraphs
// do not run together.
func PlainText(fragment string) string {
	var b strings.Builder
	i := 0
	for i < len(fragment) {
		lt := strings.IndexByte(fragment[i:], '<')
		if lt < 0 {
			b.WriteString(fragment[i:])
			break
		}
		start := i + lt
		b.WriteString(fragment[i:start])
		tok, ok := readTag(fragment, start)
		if !ok {
			b.WriteByte('<')
			i = start + 1
			continue
		}
		if tok.kind == tagClose || tok.name == "br" {
			b.WriteByte(' ')
		}
		i = tok.end
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}
