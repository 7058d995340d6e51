// Package notebook defines the host notebook abstraction that the sync
// engine reads trees from and applies mutations to, plus an in-memory
// implementation used by the outline workspace and tests.
package notebook

import (
	"context"

	"github.com/starford/gebo/internal/blocktree"
)

// Adapter is the contract a host notebook binding must implement. Every
// call is an independent host operation; the engine never assumes
// transactional behavior across calls.
//
// parentID arguments accept either a block's local identifier or a page
// identifier (for top-level placement).
type Adapter interface {
	// PageTree returns a snapshot of the page's block tree.
	PageTree(ctx context.Context, page string) ([]*blocktree.Node, error)
	// HasPage reports whether a page with the given identifier exists.
	HasPage(ctx context.Context, page string) (bool, error)
	// PageParent returns the local id of the block embedding the page,
	// or empty string for a top-level page.
	PageParent(ctx context.Context, page string) (string, error)
	// SetPageParent re-embeds the page under the given block, or makes it
	// top-level when parentLocalID is empty.
	SetPageParent(ctx context.Context, page, parentLocalID string) error
	// RenamePage changes a page's identifier. Fails with
	// apperr.ErrIdentifierCollision when the target already exists.
	RenamePage(ctx context.Context, oldTitle, newTitle string) error
	// Block returns a snapshot of a single block and its subtree.
	Block(ctx context.Context, localID string) (*blocktree.Node, error)
	// CreateBlock inserts a new block under parentID at the given sibling
	// index and returns its local id.
	CreateBlock(ctx context.Context, parentID string, order int, content string) (string, error)
	// UpdateBlock replaces a block's raw content.
	UpdateBlock(ctx context.Context, localID, content string) error
	// MoveBlock re-homes a block under parentID at the given sibling index.
	MoveBlock(ctx context.Context, localID, parentID string, order int) error
	// RemoveBlock deletes a block and its subtree.
	RemoveBlock(ctx context.Context, localID string) error
	// SetProperty sets a `key:: value` property line on a block.
	SetProperty(ctx context.Context, localID, key, value string) error
}
