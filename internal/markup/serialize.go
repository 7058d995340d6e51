package markup

import "github.com/starford/gebo/internal/annotation"

// delimiters returns the prefix/suffix pair injected around a span of the
// given type. Unknown types get an empty pair and leave the text untouched.
func delimiters(a annotation.Annotation) (string, string) {
	switch a.Type {
	case annotation.TypeBold:
		return "**", "**"
	case annotation.TypeHighlighting:
		return "^^", "^^"
	case annotation.TypeItalics:
		return "_", "_"
	case annotation.TypeStrikethrough:
		return "~~", "~~"
	case annotation.TypeLink:
		return "[", "](" + a.Attr(annotation.AttrHref) + ")"
	default:
		return "", ""
	}
}

// Serialize renders plain text with block-relative annotations back into raw
// inline markup. Spans are applied strictly in slice order; after each wrap
// every not-yet-applied span is shifted by the inserted delimiter lengths.
//
// The shift rules are asymmetric on purpose: a span's start moves by the
// suffix length when it sits at or after the current span's end (>=), while
// its end moves only when it sits strictly after it (>). A span ending
// exactly where another begins is therefore never double-shifted.
//
// Offsets must lie within text; validate the document before calling.
func Serialize(text string, anns []annotation.Annotation) string {
	spans := make([]annotation.Annotation, len(anns))
	copy(spans, anns)

	for i := range spans {
		cur := spans[i]
		prefix, suffix := delimiters(cur)
		if prefix == "" && suffix == "" {
			continue
		}

		text = text[:cur.Start] + prefix + text[cur.Start:cur.End] + suffix + text[cur.End:]

		for j := i + 1; j < len(spans); j++ {
			// Compare against the span's offsets as they were before this
			// wrap, not the partially shifted ones.
			s0, e0 := spans[j].Start, spans[j].End
			if s0 >= cur.Start {
				spans[j].Start += len(prefix)
			}
			if s0 >= cur.End {
				spans[j].Start += len(suffix)
			}
			if e0 >= cur.Start {
				spans[j].End += len(prefix)
			}
			if e0 > cur.End {
				spans[j].End += len(suffix)
			}
		}
	}

	return text
}
