// Package engine implements the bidirectional mapping between host block
// trees and the flat annotated shared-document model: encoding a page into
// a document, and reconciling a remote document back into minimal host
// mutations.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/notebook"
	"github.com/starford/gebo/internal/store"
)

// Engine coordinates the host adapter, identifier mappings, and saved page
// states. Encode and reconcile cycles for the same page are serialized by a
// per-page lock; different pages proceed concurrently.
type Engine struct {
	adapter  notebook.Adapter
	mappings store.MappingStore
	states   store.StateStore
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine.
func New(adapter notebook.Adapter, mappings store.MappingStore, states store.StateStore, logger *slog.Logger) *Engine {
	return &Engine{
		adapter:  adapter,
		mappings: mappings,
		states:   states,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockPage acquires the page's cycle lock and returns the unlock func.
// Interleaved tree reads during an in-flight mutation sequence would corrupt
// order and parent computations, so a whole cycle holds the lock.
func (e *Engine) lockPage(pageID string) func() {
	e.mu.Lock()
	l, ok := e.locks[pageID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[pageID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// globalFor resolves the global id for a local block, allocating and
// persisting a fresh one on first encounter. Persisting before returning
// guarantees a crash never leaves an allocated id observable by peers but
// absent from the store.
func (e *Engine) globalFor(localID string) (string, error) {
	gid, err := e.mappings.GlobalFor(localID)
	if err != nil || gid != "" {
		return gid, err
	}
	gid = uuid.NewString()
	if err := e.mappings.Put(localID, gid); err != nil {
		return "", err
	}
	return gid, nil
}

// Unshare stops sharing a page: its saved state and the identifier mappings
// of its blocks are removed. The local tree is left untouched.
func (e *Engine) Unshare(ctx context.Context, pageID string) error {
	defer e.lockPage(pageID)()

	tree, err := e.adapter.PageTree(ctx, pageID)
	if err == nil {
		for _, f := range blocktree.Flatten(tree, pageID) {
			gid, gerr := e.mappings.GlobalFor(f.Node.LocalID)
			if gerr != nil || gid == "" {
				continue
			}
			if rerr := e.mappings.Remove(f.Node.LocalID, gid); rerr != nil {
				e.logger.Warn("unshare: drop mapping failed",
					slog.String("local", f.Node.LocalID), slog.String("error", rerr.Error()))
			}
		}
	}
	return e.states.RemoveState(pageID)
}
