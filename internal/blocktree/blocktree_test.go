package blocktree

import (
	"strings"
	"testing"
)

func node(id, content string, children ...*Node) *Node {
	return &Node{LocalID: id, Content: content, Children: children}
}

func TestFlatten(t *testing.T) {
	tree := []*Node{
		node("a", "A",
			node("b", "B"),
			node("c", "C")),
		node("d", "D"),
	}

	flat := Flatten(tree, "Page")
	if len(flat) != 4 {
		t.Fatalf("len = %d", len(flat))
	}

	want := []struct {
		id     string
		order  int
		parent string
	}{
		{"a", 0, "Page"},
		{"b", 0, "a"},
		{"c", 1, "a"},
		{"d", 1, "Page"},
	}
	for i, w := range want {
		f := flat[i]
		if f.Node.LocalID != w.id || f.Order != w.order || f.ParentID != w.parent {
			t.Errorf("flat[%d] = {%s %d %s}, want %+v", i, f.Node.LocalID, f.Order, f.ParentID, w)
		}
	}
}

func TestFromLevels(t *testing.T) {
	// Levels 0,1,1,0: one root with two children, then a second root.
	roots := FromLevels([]Leveled{
		{Node: node("a", "A"), Level: 0},
		{Node: node("b", "B"), Level: 1},
		{Node: node("c", "C"), Level: 1},
		{Node: node("d", "D"), Level: 0},
	})

	if len(roots) != 2 {
		t.Fatalf("roots = %d", len(roots))
	}
	if roots[0].LocalID != "a" || roots[1].LocalID != "d" {
		t.Errorf("root ids = %s, %s", roots[0].LocalID, roots[1].LocalID)
	}
	if len(roots[0].Children) != 2 {
		t.Fatalf("a children = %d", len(roots[0].Children))
	}
	if roots[0].Children[0].LocalID != "b" || roots[0].Children[1].LocalID != "c" {
		t.Errorf("children = %s, %s", roots[0].Children[0].LocalID, roots[0].Children[1].LocalID)
	}
	if len(roots[1].Children) != 0 {
		t.Errorf("d should have no children")
	}
}

func TestFromLevels_ClampsSkippedLevels(t *testing.T) {
	// A jump from 0 to 3 clamps to one deeper than the current nesting.
	roots := FromLevels([]Leveled{
		{Node: node("a", "A"), Level: 0},
		{Node: node("b", "B"), Level: 3},
	})
	if len(roots) != 1 || len(roots[0].Children) != 1 {
		t.Fatalf("unexpected shape: %+v", roots)
	}
	if roots[0].Children[0].LocalID != "b" {
		t.Errorf("child = %s", roots[0].Children[0].LocalID)
	}
}

func TestFlattenFromLevelsInverse(t *testing.T) {
	items := []Leveled{
		{Node: node("a", "A"), Level: 0},
		{Node: node("b", "B"), Level: 1},
		{Node: node("c", "C"), Level: 2},
		{Node: node("d", "D"), Level: 1},
		{Node: node("e", "E"), Level: 0},
	}
	tree := FromLevels(items)
	flat := Flatten(tree, "root")
	if len(flat) != len(items) {
		t.Fatalf("len = %d", len(flat))
	}
	for i, f := range flat {
		if f.Node.LocalID != items[i].Node.LocalID {
			t.Errorf("order mismatch at %d: %s vs %s", i, f.Node.LocalID, items[i].Node.LocalID)
		}
	}
}

func TestFilter_PromotesChildren(t *testing.T) {
	tree := []*Node{
		node("a", "A",
			node("drop", "",
				node("b", "B")),
			node("c", "C")),
	}

	kept := Filter(tree, func(n *Node) bool { return strings.TrimSpace(n.Content) != "" })
	if len(kept) != 1 {
		t.Fatalf("roots = %d", len(kept))
	}
	a := kept[0]
	if len(a.Children) != 2 {
		t.Fatalf("a children = %d", len(a.Children))
	}
	// b takes the dropped node's position, before c.
	if a.Children[0].LocalID != "b" || a.Children[1].LocalID != "c" {
		t.Errorf("children = %s, %s", a.Children[0].LocalID, a.Children[1].LocalID)
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	tree := []*Node{node("a", "A", node("b", "B"))}
	_ = Filter(tree, func(n *Node) bool { return n.LocalID != "b" })
	if len(tree[0].Children) != 1 {
		t.Error("filter mutated the input tree")
	}
}
