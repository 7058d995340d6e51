package store

import "github.com/starford/gebo/internal/annotation"

// MappingStore is the persistent bijection between a host notebook's local
// block identifiers and cross-notebook global identifiers. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type MappingStore interface {
	// GlobalFor returns the global id mapped to localID, or empty string.
	GlobalFor(localID string) (string, error)
	// LocalFor returns the local id mapped to globalID, or empty string.
	LocalFor(globalID string) (string, error)
	// Put records a mapping pair. Re-putting an existing pair is a no-op.
	Put(localID, globalID string) error
	// Remove deletes a mapping pair.
	Remove(localID, globalID string) error
}

// StateStore persists the last known shared document per page.
type StateStore interface {
	// LoadState returns the saved document for a page, or nil when none.
	LoadState(pageID string) (*annotation.Document, error)
	// SaveState persists the document for a page.
	SaveState(pageID string, doc *annotation.Document) error
	// RemoveState forgets a page's saved document.
	RemoveState(pageID string) error
	// Pages lists every page with a saved document.
	Pages() ([]string, error)
}

// Verify *DB satisfies both contracts at compile time.
var (
	_ MappingStore = (*DB)(nil)
	_ StateStore   = (*DB)(nil)
)
