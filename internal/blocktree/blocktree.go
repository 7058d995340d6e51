// Package blocktree provides the hierarchical block model and the pure
// structural conversions between nested trees and flat ordered sequences.
package blocktree

// ViewType controls how a host renders a block's children.
type ViewType string

const (
	ViewBullet   ViewType = "bullet"
	ViewNumbered ViewType = "numbered"
	ViewDocument ViewType = "document"
)

// Node is one block in a page tree. LocalID is the host notebook's own
// identifier; cross-notebook identity lives in the mapping store, not here.
type Node struct {
	Content  string
	LocalID  string
	ViewType ViewType // empty means inherit from the nearest ancestor
	Children []*Node
}

// Flat is one entry of a flattened tree: the node without its children,
// its zero-based sibling index, and the identifier of its parent container.
type Flat struct {
	Node     Node
	Order    int
	ParentID string
}

// Flatten converts an ordered tree into a depth-first, parent-before-children
// sequence. rootParent is the container identifier recorded for top-level
// nodes (typically the page identifier).
func Flatten(nodes []*Node, rootParent string) []Flat {
	var out []Flat
	var walk func(nodes []*Node, parent string)
	walk = func(nodes []*Node, parent string) {
		for i, n := range nodes {
			out = append(out, Flat{
				Node:     Node{Content: n.Content, LocalID: n.LocalID, ViewType: n.ViewType},
				Order:    i,
				ParentID: parent,
			})
			walk(n.Children, n.LocalID)
		}
	}
	walk(nodes, rootParent)
	return out
}

// Leveled pairs a node with its nesting level in a flat sequence.
type Leveled struct {
	Node  *Node
	Level int
}

// FromLevels rebuilds a tree from a depth-first sequence of level-annotated
// nodes: a level increase descends into the previously inserted node, a
// decrease pops back up. Levels that skip ahead are clamped to one deeper
// than the current nesting.
func FromLevels(items []Leveled) []*Node {
	var roots []*Node
	var stack []*Node

	for _, it := range items {
		level := it.Level
		if level < 0 {
			level = 0
		}
		if level > len(stack) {
			level = len(stack)
		}
		if level == 0 {
			roots = append(roots, it.Node)
		} else {
			parent := stack[level-1]
			parent.Children = append(parent.Children, it.Node)
		}
		stack = append(stack[:level], it.Node)
	}

	return roots
}

// Filter returns the tree restricted to nodes accepted by keep. Children of
// a dropped node are promoted into its position, so filtering never orphans
// a subtree.
func Filter(nodes []*Node, keep func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range nodes {
		children := Filter(n.Children, keep)
		if keep(n) {
			kept := &Node{Content: n.Content, LocalID: n.LocalID, ViewType: n.ViewType, Children: children}
			out = append(out, kept)
		} else {
			out = append(out, children...)
		}
	}
	return out
}
