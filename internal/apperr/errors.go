// Package apperr defines the shared error taxonomy for gebo.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrMissingPage         = errors.New("page not found")
	ErrMissingParent       = errors.New("parent block cannot be resolved")
	ErrIdentifierCollision = errors.New("identifier collision")
)

// MutationError wraps a failed host mutation with the operation kind and
// the identifier it targeted. A MutationError aborts the remaining
// operations of a reconcile cycle; already-applied mutations stay in place.
type MutationError struct {
	Kind   string // create, update, move, delete, rename
	Target string // local or global identifier of the affected node
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %s on %q failed: %v", e.Kind, e.Target, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}
