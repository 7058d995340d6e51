// Package outline implements the file-backed notebook workspace: one
// Markdown outline file per page, watched for local edits and rewritten
// after reconcile cycles.
package outline

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/markup"
)

// Page is one parsed outline file.
type Page struct {
	Title string
	Nodes []*blocktree.Node
}

type frontmatter struct {
	Title string `yaml:"title"`
}

var bulletRe = regexp.MustCompile(`^((?:  )*)- (.*)$`)

// Parse reads an outline file: optional YAML frontmatter with a title
// (falling back to stem), then `- ` bullets indented two spaces per level.
// Indented lines without a bullet marker continue the previous block's
// content. Block identity (`id::`) and view (`view::`) property lines are
// lifted onto the node; id stays in the content, view does not.
func Parse(stem string, data []byte) *Page {
	title, body := splitFrontmatter(data)
	if title == "" {
		title = stem
	}

	var items []blocktree.Leveled
	var cur *blocktree.Node
	curLevel := 0

	for _, line := range strings.Split(body, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			cur = &blocktree.Node{Content: m[2]}
			curLevel = len(m[1]) / 2
			items = append(items, blocktree.Leveled{Node: cur, Level: curLevel})
			continue
		}
		if cur == nil || strings.TrimSpace(line) == "" {
			continue
		}
		cur.Content += "\n" + strings.TrimPrefix(line, strings.Repeat("  ", curLevel+1))
	}

	for _, it := range items {
		n := it.Node
		if id := markup.GetProperty(n.Content, "id"); id != "" {
			n.LocalID = id
		}
		if v := markup.GetProperty(n.Content, "view"); v != "" {
			n.ViewType = blocktree.ViewType(v)
			n.Content = markup.StripKeys(n.Content, "view")
		}
	}

	return &Page{Title: title, Nodes: blocktree.FromLevels(items)}
}

// Render writes a page back into outline file form. Every block gets its
// local id persisted as an `id::` property so identity survives reloads.
func Render(p *Page) []byte {
	var b bytes.Buffer

	fm, err := yaml.Marshal(frontmatter{Title: p.Title})
	if err == nil {
		b.WriteString("---\n")
		b.Write(fm)
		b.WriteString("---\n")
	}

	var walk func(nodes []*blocktree.Node, level int)
	walk = func(nodes []*blocktree.Node, level int) {
		indent := strings.Repeat("  ", level)
		for _, n := range nodes {
			content := n.Content
			if n.LocalID != "" && markup.GetProperty(content, "id") == "" {
				content = markup.SetProperty(content, "id", n.LocalID)
			}
			if n.ViewType != "" {
				content = markup.SetProperty(content, "view", string(n.ViewType))
			}
			lines := strings.Split(content, "\n")
			b.WriteString(indent + "- " + lines[0] + "\n")
			for _, ln := range lines[1:] {
				b.WriteString(indent + "  " + ln + "\n")
			}
			walk(n.Children, level+1)
		}
	}
	walk(p.Nodes, 0)

	return b.Bytes()
}

// splitFrontmatter separates the YAML frontmatter title from the outline
// body. Missing or invalid frontmatter yields an empty title and the whole
// content as body.
func splitFrontmatter(data []byte) (string, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return "", string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return "", string(data)
	}

	var fm frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return "", string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm.Title, body
}
