package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/starford/gebo/internal/annotation"
	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/notebook"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/testutil"
)

type fixture struct {
	Mem *notebook.Memory
	DB  *store.DB
}

func testEngine(t *testing.T, nodes []*blocktree.Node) (*Engine, *fixture) {
	t.Helper()
	mem := testutil.TestNotebook(t, "Inbox", nodes)
	db := testutil.TestDB(t)
	eng := New(mem, db, db, testutil.Silent())
	return eng, &fixture{Mem: mem, DB: db}
}

func TestEncodePage_Offsets(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		testutil.Block("alpha", testutil.Block("beta")),
		testutil.Block("gamma"),
	})
	ctx := context.Background()

	doc, err := eng.EncodePage(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}

	if doc.Content != "Inboxalphabetagamma" {
		t.Fatalf("content = %q", doc.Content)
	}

	meta, ok := doc.Metadata()
	if !ok || meta.Start != 0 || meta.End != 5 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Attr(annotation.AttrTitle) != "Inbox" || meta.Attr(annotation.AttrParent) != "" {
		t.Errorf("metadata attrs = %v", meta.Attributes)
	}

	blocks := doc.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("blocks = %+v", blocks)
	}
	want := []struct {
		start, end int
		level      string
	}{
		{5, 10, "0"},
		{10, 14, "1"},
		{14, 19, "0"},
	}
	seen := map[string]bool{}
	for i, w := range want {
		b := blocks[i]
		if b.Start != w.start || b.End != w.end {
			t.Errorf("block %d span = [%d,%d), want [%d,%d)", i, b.Start, b.End, w.start, w.end)
		}
		if b.Attr(annotation.AttrLevel) != w.level {
			t.Errorf("block %d level = %q, want %q", i, b.Attr(annotation.AttrLevel), w.level)
		}
		if b.Attr(annotation.AttrViewType) != "bullet" {
			t.Errorf("block %d viewType = %q", i, b.Attr(annotation.AttrViewType))
		}
		gid := b.Attr(annotation.AttrIdentifier)
		if gid == "" || seen[gid] {
			t.Errorf("block %d identifier = %q (empty or duplicate)", i, gid)
		}
		seen[gid] = true
	}
}

func TestEncodePage_PersistsMappings(t *testing.T) {
	eng, fx := testEngine(t, []*blocktree.Node{testutil.Block("alpha")})
	ctx := context.Background()

	doc, err := eng.EncodePage(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}

	gid := doc.Blocks()[0].Attr(annotation.AttrIdentifier)
	tree, _ := fx.Mem.PageTree(ctx, "Inbox")
	lid, err := fx.DB.LocalFor(gid)
	if err != nil || lid != tree[0].LocalID {
		t.Errorf("LocalFor(%q) = %q, %v; want %q", gid, lid, err, tree[0].LocalID)
	}
}

func TestEncodePage_Idempotent(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		testutil.Block("alpha", testutil.Block("beta")),
	})
	ctx := context.Background()

	first, err := eng.EncodePage(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.EncodePage(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("encode not stable:\n first %+v\nsecond %+v", first, second)
	}
}

func TestEncodePage_InlineMarkup(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		testutil.Block("**hello** _world_"),
	})

	doc, err := eng.EncodePage(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Inboxhello world" {
		t.Fatalf("content = %q", doc.Content)
	}

	block := doc.Blocks()[0]
	if block.Start != 5 || block.End != 16 {
		t.Errorf("block span = [%d,%d)", block.Start, block.End)
	}

	inline := doc.Within(block)
	if len(inline) != 2 {
		t.Fatalf("inline = %+v", inline)
	}
	if inline[0].Type != annotation.TypeBold || inline[0].Start != 5 || inline[0].End != 10 {
		t.Errorf("bold = %+v", inline[0])
	}
	if inline[1].Type != annotation.TypeItalics || inline[1].Start != 11 || inline[1].End != 16 {
		t.Errorf("italics = %+v", inline[1])
	}
}

func TestEncodePage_StripsReservedProperties(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		testutil.Block("task\nid:: local-7\nsamepage:: g-1"),
	})

	doc, err := eng.EncodePage(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Inboxtask" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestEncodePage_SkipsPropertyOnlyBlocks(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		{Content: "id:: x\nsamepage:: y", Children: []*blocktree.Node{
			testutil.Block("real"),
		}},
	})

	doc, err := eng.EncodePage(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	blocks := doc.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("blocks = %+v", blocks)
	}
	// The promoted child sits at the dropped parent's level.
	if blocks[0].Attr(annotation.AttrLevel) != "0" {
		t.Errorf("level = %q", blocks[0].Attr(annotation.AttrLevel))
	}
	if doc.Content != "Inboxreal" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestEncodePage_ViewTypeInheritance(t *testing.T) {
	eng, _ := testEngine(t, []*blocktree.Node{
		{Content: "steps", ViewType: blocktree.ViewNumbered, Children: []*blocktree.Node{
			testutil.Block("one"),
		}},
	})

	doc, err := eng.EncodePage(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	blocks := doc.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Attr(annotation.AttrViewType) != "numbered" {
		t.Errorf("parent viewType = %q", blocks[0].Attr(annotation.AttrViewType))
	}
	if blocks[1].Attr(annotation.AttrViewType) != "numbered" {
		t.Errorf("child should inherit numbered, got %q", blocks[1].Attr(annotation.AttrViewType))
	}
}

func TestEncodePage_MetadataParent(t *testing.T) {
	eng, fx := testEngine(t, []*blocktree.Node{testutil.Block("alpha")})
	ctx := context.Background()

	// Allocate alpha's global id first.
	doc, err := eng.EncodePage(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	alphaGlobal := doc.Blocks()[0].Attr(annotation.AttrIdentifier)

	tree, _ := fx.Mem.PageTree(ctx, "Inbox")
	fx.Mem.AddPage("Sub", nil)
	fx.Mem.EmbedPage("Sub", tree[0].LocalID)

	sub, err := eng.EncodePage(ctx, "Sub")
	if err != nil {
		t.Fatal(err)
	}
	meta, _ := sub.Metadata()
	if meta.Attr(annotation.AttrParent) != alphaGlobal {
		t.Errorf("parent = %q, want %q", meta.Attr(annotation.AttrParent), alphaGlobal)
	}
}
