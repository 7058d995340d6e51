// Package markup converts between a block's raw inline markup and its plain
// text plus typed annotations. Decode strips delimiters into spans;
// Serialize re-inserts them, shifting later span offsets as delimiters grow
// the text.
package markup

import (
	"regexp"
	"strings"

	"github.com/starford/gebo/internal/annotation"
)

type inlinePattern struct {
	typ annotation.Type
	re  *regexp.Regexp
}

// Patterns are tried leftmost-first; ties resolve in slice order.
var inlinePatterns = []inlinePattern{
	{annotation.TypeBold, regexp.MustCompile(`\*\*(.+?)\*\*`)},
	{annotation.TypeHighlighting, regexp.MustCompile(`\^\^(.+?)\^\^`)},
	{annotation.TypeStrikethrough, regexp.MustCompile(`~~(.+?)~~`)},
	{annotation.TypeItalics, regexp.MustCompile(`_([^_\n]+)_`)},
	{annotation.TypeLink, regexp.MustCompile(`\[([^\[\]\n]*)\]\(([^()\s]*)\)`)},
}

// Decode parses inline markup into plain text and block-relative annotations.
// Delimiters nest: the wrapper annotation precedes the spans of its inner
// content, matching the order Serialize expects. Unmatched delimiters are
// kept as literal text.
func Decode(raw string) (string, []annotation.Annotation) {
	var plain strings.Builder
	var anns []annotation.Annotation

	rest := raw
	for rest != "" {
		typ, m := firstMatch(rest)
		if m == nil {
			plain.WriteString(rest)
			break
		}

		plain.WriteString(rest[:m[0]])
		inner := rest[m[2]:m[3]]

		start := plain.Len()
		innerPlain, innerAnns := Decode(inner)
		plain.WriteString(innerPlain)
		end := plain.Len()

		a := annotation.Annotation{Type: typ, Start: start, End: end}
		if typ == annotation.TypeLink {
			a.Attributes = map[string]string{annotation.AttrHref: rest[m[4]:m[5]]}
		}
		anns = append(anns, a)
		for _, ia := range innerAnns {
			ia.Start += start
			ia.End += start
			anns = append(anns, ia)
		}

		rest = rest[m[1]:]
	}

	return plain.String(), anns
}

// firstMatch returns the leftmost pattern match in s as submatch indexes,
// or nil when no pattern matches.
func firstMatch(s string) (annotation.Type, []int) {
	var bestTyp annotation.Type
	var best []int
	for _, p := range inlinePatterns {
		m := p.re.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}
		if best == nil || m[0] < best[0] {
			bestTyp, best = p.typ, m
		}
	}
	return bestTyp, best
}
