package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/gebo/internal/annotation"
	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/markup"
)

type desiredBlock struct {
	globalID     string
	parentGlobal string // "" means page root
	order        int
	content      string
}

type actualBlock struct {
	parentLocal string
	order       int
	content     string
}

// Reconcile brings the local page tree in line with the given shared
// document. It computes the minimal ordered mutation plan, executes it
// through the host adapter strictly sequentially, and saves the document as
// the page's state on success. The plan is returned for observability.
//
// Execution stops at the first failing mutation; already-applied mutations
// are not rolled back. The caller retries by re-running the full cycle.
func (e *Engine) Reconcile(ctx context.Context, pageID string, doc *annotation.Document) ([]Op, error) {
	defer e.lockPage(pageID)()

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("engine: reject state for %q: %w", pageID, err)
	}

	desired := desiredBlocks(doc)

	tree, err := e.adapter.PageTree(ctx, pageID)
	if err != nil {
		return nil, err
	}
	tree = blocktree.Filter(tree, func(n *blocktree.Node) bool {
		return markup.IsContentful(n.Content)
	})
	flat := blocktree.Flatten(tree, pageID)

	actual := make(map[string]actualBlock, len(flat))
	actualGlobal := make(map[string]string, len(flat))
	for _, f := range flat {
		lid := f.Node.LocalID
		actual[lid] = actualBlock{
			parentLocal: f.ParentID,
			order:       f.Order,
			content:     normalizeContent(f.Node.Content),
		}
		gid, gerr := e.mappings.GlobalFor(lid)
		if gerr != nil {
			return nil, gerr
		}
		actualGlobal[lid] = gid
	}

	desiredSet := make(map[string]bool, len(desired))
	desiredLocal := make(map[string]string, len(desired))
	for _, d := range desired {
		desiredSet[d.globalID] = true
		lid, lerr := e.mappings.LocalFor(d.globalID)
		if lerr != nil {
			return nil, lerr
		}
		desiredLocal[d.globalID] = lid
	}

	var ops []Op

	// Metadata op first: title and page parent.
	if meta, ok := doc.Metadata(); ok {
		if title := meta.Attr(annotation.AttrTitle); title != "" && title != pageID {
			ops = append(ops, Op{Kind: OpRenamePage, NewTitle: title})
		}
		wantParent := meta.Attr(annotation.AttrParent)
		curParent := ""
		if embed, perr := e.adapter.PageParent(ctx, pageID); perr != nil {
			return nil, perr
		} else if embed != "" {
			if curParent, perr = e.mappings.GlobalFor(embed); perr != nil {
				return nil, perr
			}
		}
		if wantParent != curParent {
			ops = append(ops, Op{Kind: OpReparentPage, ParentGlobal: wantParent})
		}
	}

	// Deletes, parent-first (flat order).
	for _, f := range flat {
		lid := f.Node.LocalID
		gid := actualGlobal[lid]
		if gid != "" && desiredSet[gid] {
			continue
		}
		ops = append(ops, Op{Kind: OpDelete, LocalID: lid, GlobalID: gid, ParentLocal: f.ParentID})
	}

	// Creates in desired (parent-first) order, then updates and moves.
	var rest []Op
	for _, d := range desired {
		lid := desiredLocal[d.globalID]
		a, exists := actual[lid]
		if lid == "" || !exists {
			ops = append(ops, Op{
				Kind:         OpCreate,
				GlobalID:     d.globalID,
				ParentGlobal: d.parentGlobal,
				Order:        d.order,
				Content:      d.content,
			})
			continue
		}

		wantParent := pageID
		if d.parentGlobal != "" {
			// Empty when the parent is created within this same plan,
			// which always differs from any existing local parent.
			wantParent = desiredLocal[d.parentGlobal]
		}
		switch {
		case a.parentLocal != wantParent || a.order != d.order:
			rest = append(rest, Op{
				Kind:         OpMove,
				LocalID:      lid,
				GlobalID:     d.globalID,
				ParentGlobal: d.parentGlobal,
				Order:        d.order,
			})
		case a.content != d.content:
			rest = append(rest, Op{Kind: OpUpdate, LocalID: lid, GlobalID: d.globalID, Content: d.content})
		}
	}
	ops = append(ops, rest...)

	finalID, err := e.execute(ctx, pageID, ops)
	if err != nil {
		return ops, err
	}

	if err := e.states.SaveState(finalID, doc); err != nil {
		return ops, err
	}
	if finalID != pageID {
		if err := e.states.RemoveState(pageID); err != nil {
			return ops, err
		}
	}

	e.logger.Debug("reconciled page",
		slog.String("page", finalID), slog.Int("ops", len(ops)))
	return ops, nil
}

// desiredBlocks rebuilds the target tree from level-annotated block spans
// and flattens it again with explicit parent/order bookkeeping. This walk
// is the exact inverse of the encoder's traversal for tree shape.
func desiredBlocks(doc *annotation.Document) []desiredBlock {
	var out []desiredBlock
	var stack []string // global ids of the current ancestor chain
	orders := make(map[string]int)

	for _, b := range doc.Blocks() {
		gid := b.Attr(annotation.AttrIdentifier)
		level := b.Level()
		if level > len(stack) {
			level = len(stack)
		}
		parent := ""
		if level > 0 {
			parent = stack[level-1]
		}

		rel := doc.Within(b)
		for i := range rel {
			rel[i].Start -= b.Start
			rel[i].End -= b.Start
		}
		out = append(out, desiredBlock{
			globalID:     gid,
			parentGlobal: parent,
			order:        orders[parent],
			content:      markup.Serialize(doc.Slice(b), rel),
		})
		orders[parent]++
		stack = append(stack[:level], gid)
	}
	return out
}

// normalizeContent puts host block text into the same form the serializer
// produces from the shared document: reserved property lines and the
// trailing newline stripped.
func normalizeContent(raw string) string {
	return strings.TrimSuffix(markup.StripKeys(raw, reservedKeys...), "\n")
}

// execute runs the plan strictly sequentially. It returns the page id in
// effect after the plan (renames change it) and the first failure, if any.
func (e *Engine) execute(ctx context.Context, pageID string, ops []Op) (string, error) {
	current := pageID
	created := make(map[string]string) // global -> local, for parents created this cycle
	removed := make(map[string]bool)

	resolveParent := func(global string) (string, error) {
		if global == "" {
			return current, nil
		}
		if lid, ok := created[global]; ok {
			return lid, nil
		}
		lid, err := e.mappings.LocalFor(global)
		if err != nil {
			return "", err
		}
		if lid == "" {
			return "", fmt.Errorf("parent %s: %w", global, apperr.ErrMissingParent)
		}
		return lid, nil
	}

	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpRenamePage:
			if err = e.renamePage(ctx, current, op.NewTitle); err == nil {
				current = op.NewTitle
			}

		case OpReparentPage:
			parent := ""
			if op.ParentGlobal != "" {
				parent, err = resolveParent(op.ParentGlobal)
			}
			if err == nil {
				err = e.adapter.SetPageParent(ctx, current, parent)
			}

		case OpDelete:
			if !removed[op.ParentLocal] {
				err = e.adapter.RemoveBlock(ctx, op.LocalID)
			}
			if err == nil {
				removed[op.LocalID] = true
				if op.GlobalID != "" {
					err = e.mappings.Remove(op.LocalID, op.GlobalID)
				}
			}

		case OpCreate:
			var parent, lid string
			if parent, err = resolveParent(op.ParentGlobal); err == nil {
				lid, err = e.adapter.CreateBlock(ctx, parent, op.Order, op.Content)
			}
			if err == nil {
				created[op.GlobalID] = lid
				err = e.mappings.Put(lid, op.GlobalID)
			}
			if err == nil {
				// Identity stamp; stripped back out on encode.
				err = e.adapter.SetProperty(ctx, lid, "samepage", op.GlobalID)
			}

		case OpUpdate:
			err = e.adapter.UpdateBlock(ctx, op.LocalID, op.Content)

		case OpMove:
			var parent string
			if parent, err = resolveParent(op.ParentGlobal); err == nil {
				err = e.adapter.MoveBlock(ctx, op.LocalID, parent, op.Order)
			}
		}

		if err != nil {
			return current, &apperr.MutationError{Kind: string(op.Kind), Target: op.Target(), Err: err}
		}
	}
	return current, nil
}

// renamePage renames the page, first moving aside any other page that
// already claims the target title so the rename cannot collide.
func (e *Engine) renamePage(ctx context.Context, current, title string) error {
	exists, err := e.adapter.HasPage(ctx, title)
	if err != nil {
		return err
	}
	if exists {
		aside := title + " " + uuid.NewString()[:8]
		e.logger.Warn("page rename collision, reassigning claimant",
			slog.String("title", title),
			slog.String("reassigned", aside),
			slog.String("reason", apperr.ErrIdentifierCollision.Error()))
		if err := e.adapter.RenamePage(ctx, title, aside); err != nil {
			return err
		}
		if err := e.states.RemoveState(title); err != nil {
			return err
		}
	}
	return e.adapter.RenamePage(ctx, current, title)
}
