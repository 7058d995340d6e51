package outline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/gebo/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openWorkspace(t *testing.T, dir string) *Workspace {
	t.Helper()
	w, err := Open(dir, testutil.Silent())
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestOpen_ScansOutlineFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n  - beta\n    id:: b1\n")
	writeFile(t, dir, "notes.txt", "not an outline")

	w := openWorkspace(t, dir)
	pages := w.Pages()
	if len(pages) != 1 || pages[0] != "Inbox" {
		t.Fatalf("pages = %v, want [Inbox]", pages)
	}

	tree, err := w.PageTree(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 1 || tree[0].LocalID != "a1" {
		t.Fatalf("unexpected tree: %+v", tree)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].LocalID != "b1" {
		t.Errorf("unexpected children: %+v", tree[0].Children)
	}
}

func TestOpen_TitleFallsBackToStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scratch.md", "- hello\n  id:: h1\n")

	w := openWorkspace(t, dir)
	ok, err := w.HasPage(context.Background(), "scratch")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("page scratch not loaded, pages = %v", w.Pages())
	}
}

func TestOpen_AssignsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n")

	w := openWorkspace(t, dir)
	tree, err := w.PageTree(context.Background(), "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if tree[0].LocalID == "" {
		t.Fatal("block left without an id")
	}

	// The assigned id was flushed back so it survives the next load.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "id:: "+tree[0].LocalID) {
		t.Errorf("file not rewritten with id:\n%s", data)
	}
}

func TestWorkspace_MutationsFlushToDisk(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n")
	w := openWorkspace(t, dir)
	ctx := context.Background()

	if _, err := w.CreateBlock(ctx, "Inbox", 1, "delta"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "- delta") {
		t.Errorf("created block missing from file:\n%s", data)
	}

	if err := w.UpdateBlock(ctx, "a1", "alpha v2"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "- alpha v2") {
		t.Errorf("update missing from file:\n%s", data)
	}

	if err := w.RemoveBlock(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "alpha") {
		t.Errorf("removed block still in file:\n%s", data)
	}
}

func TestWorkspace_MoveAcrossPagesFlushesBoth(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.md", "---\ntitle: A\n---\n- moving\n  id:: m1\n")
	dst := writeFile(t, dir, "b.md", "---\ntitle: B\n---\n- anchor\n  id:: k1\n")
	w := openWorkspace(t, dir)

	if err := w.MoveBlock(context.Background(), "m1", "k1", 0); err != nil {
		t.Fatal(err)
	}

	srcData, _ := os.ReadFile(src)
	if strings.Contains(string(srcData), "moving") {
		t.Errorf("source file still holds the block:\n%s", srcData)
	}
	dstData, _ := os.ReadFile(dst)
	if !strings.Contains(string(dstData), "  - moving") {
		t.Errorf("destination file missing nested block:\n%s", dstData)
	}
}

func TestWorkspace_RenamePageReplacesFile(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n")
	w := openWorkspace(t, dir)

	if err := w.RenamePage(context.Background(), "Inbox", "Archive"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("old file still present: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Archive.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "title: Archive") {
		t.Errorf("new file lacks retitled frontmatter:\n%s", data)
	}

	ok, _ := w.HasPage(context.Background(), "Archive")
	if !ok {
		t.Error("renamed page missing from workspace")
	}
}

type editLog struct {
	mu    sync.Mutex
	pages []string
}

func (e *editLog) add(page string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pages = append(e.pages, page)
}

func (e *editLog) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pages)
}

func TestWatch_DetectsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n")
	w := openWorkspace(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := &editLog{}
	go w.Watch(ctx, log.add)
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha edited\n  id:: a1\n")

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return log.count() > 0
	}, "external edit never reported")

	tree, err := w.PageTree(ctx, "Inbox")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tree[0].Content, "alpha edited") {
		t.Errorf("tree not reloaded: %q", tree[0].Content)
	}
}

func TestWatch_SkipsSelfWrites(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n")
	w := openWorkspace(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := &editLog{}
	go w.Watch(ctx, log.add)
	time.Sleep(100 * time.Millisecond)

	// Flushes go through the workspace itself; the watcher must not loop
	// them back as edits.
	if err := w.UpdateBlock(ctx, "a1", "alpha v2"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if n := log.count(); n != 0 {
		t.Errorf("self-write reported as edit %d times", n)
	}
}

func TestWatch_ForgetsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inbox.md", "---\ntitle: Inbox\n---\n- alpha\n  id:: a1\n")
	w := openWorkspace(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Watch(ctx, nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		ok, err := w.HasPage(ctx, "Inbox")
		return err == nil && !ok
	}, "removed file's page still loaded")
}
