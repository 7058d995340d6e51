// Package annotation defines the flat shared-document model: a single text
// buffer plus an ordered list of typed, offset-addressed spans. This is the
// CRDT-friendly representation that gebo exchanges with peer notebooks.
package annotation

import (
	"fmt"
	"strconv"
)

// Type identifies the kind of a span.
type Type string

const (
	TypeBlock         Type = "block"
	TypeMetadata      Type = "metadata"
	TypeBold          Type = "bold"
	TypeItalics       Type = "italics"
	TypeHighlighting  Type = "highlighting"
	TypeStrikethrough Type = "strikethrough"
	TypeLink          Type = "link"
)

// Attribute keys. Block spans carry identifier/level/viewType, the metadata
// span carries title/parent, link spans carry href.
const (
	AttrIdentifier = "identifier"
	AttrLevel      = "level"
	AttrViewType   = "viewType"
	AttrTitle      = "title"
	AttrParent     = "parent"
	AttrHref       = "href"
)

// Annotation is one typed span over [Start, End) of the document content.
type Annotation struct {
	Type       Type              `json:"type"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns the named attribute or empty string.
func (a Annotation) Attr(key string) string {
	return a.Attributes[key]
}

// Level returns the block nesting level for block annotations.
// Non-numeric or absent levels count as 0.
func (a Annotation) Level() int {
	n, err := strconv.Atoi(a.Attributes[AttrLevel])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Contains reports whether b's range lies entirely within a's range.
func (a Annotation) Contains(b Annotation) bool {
	return a.Start <= b.Start && b.End <= a.End
}

// Document is the flat annotated document: content plus ordered spans.
type Document struct {
	Content     string       `json:"content"`
	Annotations []Annotation `json:"annotations"`
}

// Validate checks the offset invariant for every annotation:
// 0 <= start <= end <= len(content). Block annotations must carry an
// identifier. A violation is a programming or wire-corruption error and the
// document must not be applied.
func (d *Document) Validate() error {
	for i, a := range d.Annotations {
		if a.Start < 0 || a.End < a.Start || a.End > len(d.Content) {
			return fmt.Errorf("annotation %d (%s): range [%d,%d) outside content of length %d",
				i, a.Type, a.Start, a.End, len(d.Content))
		}
		if a.Type == TypeBlock && a.Attr(AttrIdentifier) == "" {
			return fmt.Errorf("annotation %d: block span without identifier", i)
		}
	}
	return nil
}

// Metadata returns the document's metadata annotation, if present.
func (d *Document) Metadata() (Annotation, bool) {
	for _, a := range d.Annotations {
		if a.Type == TypeMetadata {
			return a, true
		}
	}
	return Annotation{}, false
}

// Blocks returns the block annotations in document order.
func (d *Document) Blocks() []Annotation {
	var out []Annotation
	for _, a := range d.Annotations {
		if a.Type == TypeBlock {
			out = append(out, a)
		}
	}
	return out
}

// Within returns the inline annotations contained in the given block span,
// in document order with absolute offsets. Block and metadata spans are
// excluded; callers re-base the result to block-relative offsets.
func (d *Document) Within(block Annotation) []Annotation {
	var out []Annotation
	for _, a := range d.Annotations {
		if a.Type == TypeBlock || a.Type == TypeMetadata {
			continue
		}
		if block.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

// Slice returns the content addressed by the annotation.
func (d *Document) Slice(a Annotation) string {
	return d.Content[a.Start:a.End]
}
