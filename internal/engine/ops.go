package engine

// OpKind names a host mutation kind.
type OpKind string

const (
	OpRenamePage   OpKind = "rename-page"
	OpReparentPage OpKind = "reparent-page"
	OpDelete       OpKind = "delete"
	OpCreate       OpKind = "create"
	OpUpdate       OpKind = "update"
	OpMove         OpKind = "move"
)

// Op is one mutation in a reconcile plan. Plans are executed strictly in
// order: the metadata op first, then deletes, then creates (parents before
// children), then updates and moves.
//
// Creates and moves carry the parent's global id rather than a local id:
// the parent's local id may only come into existence once an earlier create
// in the same plan has run. An empty ParentGlobal means the page root.
type Op struct {
	Kind         OpKind
	LocalID      string
	GlobalID     string
	ParentGlobal string
	ParentLocal  string // deletes: lets the executor skip blocks already gone with their subtree
	Order        int
	Content      string
	NewTitle     string
}

// Target returns the most useful identifier for error reporting.
func (op Op) Target() string {
	if op.LocalID != "" {
		return op.LocalID
	}
	if op.GlobalID != "" {
		return op.GlobalID
	}
	return op.NewTitle
}
