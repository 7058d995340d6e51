package annotation

import (
	"strings"
	"testing"
)

func TestValidate_OK(t *testing.T) {
	d := &Document{
		Content: "TitleBody",
		Annotations: []Annotation{
			{Type: TypeMetadata, Start: 0, End: 5, Attributes: map[string]string{AttrTitle: "Title"}},
			{Type: TypeBlock, Start: 5, End: 9, Attributes: map[string]string{AttrIdentifier: "g1", AttrLevel: "0"}},
			{Type: TypeBold, Start: 5, End: 7},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RangeViolations(t *testing.T) {
	cases := []Annotation{
		{Type: TypeBold, Start: -1, End: 2},
		{Type: TypeBold, Start: 3, End: 2},
		{Type: TypeBold, Start: 0, End: 99},
	}
	for _, a := range cases {
		d := &Document{Content: "short", Annotations: []Annotation{a}}
		if err := d.Validate(); err == nil {
			t.Errorf("expected error for %+v", a)
		}
	}
}

func TestValidate_AllowsZeroWidthSpan(t *testing.T) {
	// A block whose text is empty still carries a span; start == end is legal.
	d := &Document{
		Content: "Title",
		Annotations: []Annotation{
			{Type: TypeBlock, Start: 5, End: 5, Attributes: map[string]string{AttrIdentifier: "g1", AttrLevel: "0"}},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_BlockNeedsIdentifier(t *testing.T) {
	d := &Document{
		Content:     "x",
		Annotations: []Annotation{{Type: TypeBlock, Start: 0, End: 1}},
	}
	err := d.Validate()
	if err == nil || !strings.Contains(err.Error(), "identifier") {
		t.Fatalf("err = %v", err)
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		attrs map[string]string
		want  int
	}{
		{map[string]string{AttrLevel: "2"}, 2},
		{map[string]string{AttrLevel: "junk"}, 0},
		{map[string]string{AttrLevel: "-3"}, 0},
		{nil, 0},
	}
	for _, c := range cases {
		a := Annotation{Type: TypeBlock, Attributes: c.attrs}
		if got := a.Level(); got != c.want {
			t.Errorf("Level(%v) = %d, want %d", c.attrs, got, c.want)
		}
	}
}

func TestWithin(t *testing.T) {
	block := Annotation{Type: TypeBlock, Start: 5, End: 15, Attributes: map[string]string{AttrIdentifier: "g1"}}
	d := &Document{
		Content: strings.Repeat("x", 20),
		Annotations: []Annotation{
			{Type: TypeMetadata, Start: 0, End: 5},
			block,
			{Type: TypeBold, Start: 6, End: 9},
			{Type: TypeItalics, Start: 2, End: 8},  // straddles the block start
			{Type: TypeLink, Start: 14, End: 18},   // straddles the block end
			{Type: TypeBlock, Start: 15, End: 20, Attributes: map[string]string{AttrIdentifier: "g2"}},
		},
	}

	got := d.Within(block)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Type != TypeBold {
		t.Errorf("kept span = %+v", got[0])
	}
}

func TestMetadataAndBlocks(t *testing.T) {
	d := &Document{
		Content: "abcdef",
		Annotations: []Annotation{
			{Type: TypeMetadata, Start: 0, End: 2, Attributes: map[string]string{AttrTitle: "ab"}},
			{Type: TypeBlock, Start: 2, End: 4, Attributes: map[string]string{AttrIdentifier: "g1"}},
			{Type: TypeBlock, Start: 4, End: 6, Attributes: map[string]string{AttrIdentifier: "g2"}},
		},
	}
	meta, ok := d.Metadata()
	if !ok || meta.Attr(AttrTitle) != "ab" {
		t.Errorf("metadata = %+v, %v", meta, ok)
	}
	blocks := d.Blocks()
	if len(blocks) != 2 || blocks[0].Attr(AttrIdentifier) != "g1" {
		t.Errorf("blocks = %+v", blocks)
	}
	if d.Slice(blocks[1]) != "ef" {
		t.Errorf("slice = %q", d.Slice(blocks[1]))
	}
}
