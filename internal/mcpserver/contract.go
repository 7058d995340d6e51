package mcpserver

// StateFormatContract describes the canonical shared document format that
// LLM consumers should follow when applying page states.
const StateFormatContract = `# Gebo Shared Document Format Contract

Every page state passed to apply_page_state MUST follow this structure.

## Structure

` + "```" + `json
{
  "content": "Page TitleFirst blockNested block",
  "annotations": [
    {"type": "metadata", "start": 0, "end": 10,
     "attributes": {"title": "Page Title", "parent": ""}},
    {"type": "block", "start": 10, "end": 21,
     "attributes": {"identifier": "<uuid>", "level": "0", "viewType": "bullet"}},
    {"type": "block", "start": 21, "end": 33,
     "attributes": {"identifier": "<uuid>", "level": "1", "viewType": "bullet"}}
  ]
}
` + "```" + `

## Rules

1. **content** is the page title followed by every block's plain text in
   depth-first order, concatenated with no separators. Offsets below are
   byte offsets into this string.
2. **Exactly one metadata annotation** covers the title span ` + "`" + `[0, len(title))` + "`" + `.
   Its ` + "`" + `title` + "`" + ` attribute names the page; ` + "`" + `parent` + "`" + ` is the global id of the
   embedding block, or empty for a top-level page.
3. **One block annotation per block,** covering exactly the block's text
   (no trailing newline). Blocks appear in document order.
4. **identifier** is the block's stable global id (UUID). Reuse the ids from
   get_page_state when editing; omit-or-invent an id only for new blocks.
5. **level** is the block's depth as a decimal string: ` + "`" + `"0"` + "`" + ` for roots,
   children exactly one deeper than their parent.
6. **viewType** is ` + "`" + `bullet` + "`" + `, ` + "`" + `numbered` + "`" + `, or ` + "`" + `document` + "`" + `. Children inherit
   the parent's value when unspecified.
7. **Inline formatting** uses span annotations fully contained inside one
   block: ` + "`" + `bold` + "`" + `, ` + "`" + `italics` + "`" + `, ` + "`" + `highlighting` + "`" + `, ` + "`" + `strikethrough` + "`" + `, and
   ` + "`" + `link` + "`" + ` (with an ` + "`" + `href` + "`" + ` attribute). Annotation text stays plain in
   content; the markup delimiters are reconstructed on apply.
8. **No annotation may run past the end of content**, and every annotation
   has ` + "`" + `start <= end` + "`" + `. A block with empty text carries a zero-width
   span.

## Example

To bold the word "First" in the block above, add:

` + "```" + `json
{"type": "bold", "start": 10, "end": 15}
` + "```" + `
`
