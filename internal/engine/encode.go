package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/starford/gebo/internal/annotation"
	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/markup"
)

// Property keys that carry sync bookkeeping and never enter the shared
// document.
var reservedKeys = []string{"id", "title", "samepage"}

// EncodePage converts the page's block tree into a flat annotated document.
// Previously-unseen blocks get a global identifier allocated and persisted
// as a side effect. Given an unchanged tree and a populated mapping, the
// output is byte-identical across calls; convergence detection upstream
// relies on that.
func (e *Engine) EncodePage(ctx context.Context, pageID string) (*annotation.Document, error) {
	defer e.lockPage(pageID)()
	return e.encodePage(ctx, pageID)
}

func (e *Engine) encodePage(ctx context.Context, pageID string) (*annotation.Document, error) {
	tree, err := e.adapter.PageTree(ctx, pageID)
	if err != nil {
		return nil, err
	}
	tree = blocktree.Filter(tree, func(n *blocktree.Node) bool {
		return markup.IsContentful(n.Content)
	})

	// The metadata parent is the page's embedding block, one level up.
	parentGlobal := ""
	embed, err := e.adapter.PageParent(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if embed != "" {
		parentGlobal, err = e.mappings.GlobalFor(embed)
		if err != nil {
			return nil, err
		}
	}

	doc := &annotation.Document{Content: pageID}
	doc.Annotations = append(doc.Annotations, annotation.Annotation{
		Type:  annotation.TypeMetadata,
		Start: 0,
		End:   len(pageID),
		Attributes: map[string]string{
			annotation.AttrTitle:  pageID,
			annotation.AttrParent: parentGlobal,
		},
	})

	var walk func(nodes []*blocktree.Node, level int, inherited blocktree.ViewType) error
	walk = func(nodes []*blocktree.Node, level int, inherited blocktree.ViewType) error {
		for _, n := range nodes {
			gid, err := e.globalFor(n.LocalID)
			if err != nil {
				return err
			}

			raw := markup.StripKeys(n.Content, reservedKeys...)
			raw = strings.TrimSuffix(raw, "\n")
			plain, inline := markup.Decode(raw)

			view := inherited
			if n.ViewType != "" {
				view = n.ViewType
			}

			start := len(doc.Content)
			doc.Content += plain
			doc.Annotations = append(doc.Annotations, annotation.Annotation{
				Type:  annotation.TypeBlock,
				Start: start,
				End:   start + len(plain),
				Attributes: map[string]string{
					annotation.AttrIdentifier: gid,
					annotation.AttrLevel:      strconv.Itoa(level),
					annotation.AttrViewType:   string(view),
				},
			})
			for _, ia := range inline {
				ia.Start += start
				ia.End += start
				doc.Annotations = append(doc.Annotations, ia)
			}

			if err := walk(n.Children, level+1, view); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(tree, 0, blocktree.ViewBullet); err != nil {
		return nil, err
	}
	return doc, nil
}
