package detail

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Markup contract shared with the editing surface. These names must not change:
// saved VAL content and the browser extensions both depend on them.
const (
	Tag          = "p"
	IDAttr       = "data-detail-id"
	TestIDAttr   = "data-testid"
	TestIDPrefix = "detail-"

	ClassIndentPrefix    = "indent-level-"
	ClassCenter          = "text-center"
	ClassTightLineHeight = "tightLineHeight"
	ClassBold            = "font-bold"
	ClassBullet          = "bullet"

	MaxIndent = 4
)

// NewID generates identifiers for paragraphs that arrive without one.
var NewID = uuid.NewString

var wrapperTags = map[string]struct{}{"p": {}, "div": {}}

var blockTags = map[string]struct{}{
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"ul": {}, "ol": {}, "blockquote": {}, "table": {}, "pre": {},
}

func isWrapper(tag string) bool {
	_, ok := wrapperTags[tag]
	return ok
}

func isBlock(tag string) bool {
	_, ok := blockTags[tag]
	return ok
}

// ClassString builds the class attribute for a set of flags. Token order is
// fixed: indent, center, line height, bold, bullet.
func ClassString(f Flags) string {
	tokens := make([]string, 0, 5)
	if f.Indent != nil && *f.Indent > 0 {
		tokens = append(tokens, fmt.Sprintf("%s%d", ClassIndentPrefix, *f.Indent))
	}
	if f.Center {
		tokens = append(tokens, ClassCenter)
	}
	if f.TightLineHeight {
		tokens = append(tokens, ClassTightLineHeight)
	}
	if f.Bold {
		tokens = append(tokens, ClassBold)
	}
	if f.Bullet {
		tokens = append(tokens, ClassBullet)
	}
	return strings.Join(tokens, " ")
}

// ParseFlags recovers flags from a class attribute. Unknown tokens are ignored.
func ParseFlags(class string) Flags {
	var f Flags
	for _, token := range strings.Fields(class) {
		switch {
		case token == ClassBold:
			f.Bold = true
		case token == ClassBullet:
			f.Bullet = true
		case token == ClassCenter:
			f.Center = true
		case token == ClassTightLineHeight:
			f.TightLineHeight = true
		case strings.HasPrefix(token, ClassIndentPrefix):
			n, err := strconv.Atoi(strings.TrimPrefix(token, ClassIndentPrefix))
			if err != nil || n <= 0 {
				continue
			}
			if n > MaxIndent {
				n = MaxIndent
			}
			f.Indent = IntPtr(n)
		}
	}
	return f
}

// InnerContent strips any number of paragraph-level wrappers that enclose the
// whole fragment.
func InnerContent(fragment string) string {
	current := fragment
	for {
		el, ok := singleElement(current)
		if !ok || !isWrapper(el.Tag) {
			return current
		}
		current = el.Inner
	}
}

// payload splits stored content into the outer tag it renders with and the
// markup inside it.
func payload(content string) (string, string) {
	inner := InnerContent(content)
	if el, ok := singleElement(inner); ok && isBlock(el.Tag) {
		return el.Tag, el.Inner
	}
	return Tag, inner
}

func identityAttrs(id string, flags Flags) []attribute {
	attrs := make([]attribute, 0, 3)
	if id != "" {
		attrs = append(attrs,
			attribute{Name: IDAttr, Value: id},
			attribute{Name: TestIDAttr, Value: TestIDPrefix + id},
		)
	}
	if class := ClassString(flags); class != "" {
		attrs = append(attrs, attribute{Name: "class", Value: class})
	}
	return attrs
}

func wrap(tag, inner, id string, flags Flags) string {
	return renderStartTag(tag, identityAttrs(id, flags)) + inner + "</" + tag + ">"
}

// Render produces the markup fragment for a single block: one outer element
// carrying the identifier and class attributes.
func Render(block ContentBlock) string {
	tag, inner := payload(block.Content)
	return wrap(tag, inner, block.ID, block.Flags())
}

// Encode renders blocks in ascending DisplayOrder as one markup string.
func Encode(blocks []ContentBlock) string {
	var b strings.Builder
	for _, block := range SortByDisplayOrder(blocks) {
		b.WriteString(Render(block))
	}
	return b.String()
}

// Decode parses markup back into blocks. Paragraphs whose identifier matches
// an existing block keep that block's flags and only take the new content;
// paragraphs without a known identifier become new blocks with flags read from
// their class attribute. DisplayOrder follows document order.
func Decode(markup string, existing []ContentBlock, valID, sectionID string) []ContentBlock {
	elements := topLevelElements(markup)
	out := make([]ContentBlock, 0, len(elements))
	if len(elements) == 0 {
		return out
	}

	byID := make(map[string]ContentBlock, len(existing))
	for _, block := range existing {
		if block.ID != "" {
			byID[block.ID] = block
		}
	}
	fallbackSection := sectionID
	if len(existing) > 0 && existing[0].SectionID != "" {
		fallbackSection = existing[0].SectionID
	}

	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		id, _ := el.attr(IDAttr)
		id = strings.TrimSpace(id)
		// Splitting a paragraph in the editor copies its attributes, so a
		// repeated identifier marks a new paragraph.
		if _, dup := seen[id]; id == "" || dup {
			id = NewID()
		}
		seen[id] = struct{}{}

		tag, inner := elementPayload(el)

		if prev, ok := byID[id]; ok {
			block := Clone([]ContentBlock{prev})[0]
			prevTag, prevInner := payload(prev.Content)
			if prevTag != tag || prevInner != inner {
				block.Content = wrap(tag, inner, id, prev.Flags())
			}
			block.DisplayOrder = i + 1
			out = append(out, block)
			continue
		}

		class, _ := el.attr("class")
		flags := ParseFlags(class)
		out = append(out, ContentBlock{
			ID:              id,
			ValID:           valID,
			SectionID:       fallbackSection,
			Content:         wrap(tag, inner, id, flags),
			DisplayOrder:    i + 1,
			Bold:            flags.Bold,
			Bullet:          flags.Bullet,
			Center:          flags.Center,
			TightLineHeight: flags.TightLineHeight,
			Indent:          flags.Indent,
		})
	}
	return out
}

func elementPayload(el element) (string, string) {
	switch {
	case isWrapper(el.Tag):
		return payload(el.Inner)
	case isBlock(el.Tag):
		return el.Tag, el.Inner
	default:
		return Tag, el.Outer
	}
}
