package outline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/checksum"
	"github.com/starford/gebo/internal/notebook"
)

// Workspace is a directory of outline files exposed as a notebook.Adapter.
// Reads and mutations go through an in-memory notebook seeded from the
// files; every mutation rewrites the affected page's file. Self-writes are
// remembered by checksum so the watcher can tell them apart from edits.
type Workspace struct {
	root   string
	mem    *notebook.Memory
	logger *slog.Logger

	mu       sync.Mutex
	files    map[string]string // page -> absolute file path
	paths    map[string]string // absolute file path -> page
	selfSums map[string]string // absolute file path -> checksum of last self-write
}

// Verify Workspace satisfies Adapter at compile time.
var _ notebook.Adapter = (*Workspace)(nil)

// Open scans root for .md outline files and loads them. The directory must
// already exist. Pages live directly in root, one file per page.
func Open(root string, logger *slog.Logger) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("outline: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("outline: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("outline: root is not a directory: %s", abs)
	}

	w := &Workspace{
		root:     abs,
		mem:      notebook.NewMemory(),
		logger:   logger,
		files:    make(map[string]string),
		paths:    make(map[string]string),
		selfSums: make(map[string]string),
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("outline: read root: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".md") {
			continue
		}
		path := filepath.Join(abs, ent.Name())
		if _, _, err := w.load(path); err != nil {
			logger.Warn("outline: load failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return w, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Pages returns every loaded page.
func (w *Workspace) Pages() []string {
	return w.mem.Pages()
}

// load parses the file and (re)registers its page, retitling when the
// frontmatter changed. Blocks that had no persisted id get one assigned and
// the file flushed back so identity survives the next reload.
func (w *Workspace) load(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".md")
	p := Parse(stem, data)

	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.paths[path]; ok && old != p.Title {
		w.mem.RemovePage(old)
		delete(w.files, old)
	}

	needIDs := anyMissingID(p.Nodes)
	w.mem.AddPage(p.Title, p.Nodes)
	w.files[p.Title] = path
	w.paths[path] = p.Title

	if needIDs {
		if err := w.flushLocked(p.Title); err != nil {
			return p.Title, true, err
		}
	}
	return p.Title, true, nil
}

func anyMissingID(nodes []*blocktree.Node) bool {
	for _, n := range nodes {
		if n.LocalID == "" || anyMissingID(n.Children) {
			return true
		}
	}
	return false
}

// flush rewrites the page's file from the in-memory tree.
func (w *Workspace) flush(page string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(page)
}

func (w *Workspace) flushLocked(page string) error {
	path, ok := w.files[page]
	if !ok {
		path = filepath.Join(w.root, fileName(page))
		w.files[page] = path
		w.paths[path] = page
	}

	tree, err := w.mem.PageTree(context.Background(), page)
	if err != nil {
		return err
	}
	data := Render(&Page{Title: page, Nodes: tree})
	w.selfSums[path] = checksum.Sum(data)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("outline: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("outline: rename %s: %w", path, err)
	}
	return nil
}

// forget drops the page backed by path from memory (file deleted on disk).
func (w *Workspace) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	page, ok := w.paths[path]
	if !ok {
		return
	}
	delete(w.paths, path)
	delete(w.files, page)
	delete(w.selfSums, path)
	w.mem.RemovePage(page)
	w.logger.Info("outline: page removed", slog.String("page", page))
}

// fileName turns a page title into a safe file name.
func fileName(page string) string {
	return strings.ReplaceAll(page, string(os.PathSeparator), "-") + ".md"
}

// --- notebook.Adapter ---

func (w *Workspace) PageTree(ctx context.Context, page string) ([]*blocktree.Node, error) {
	return w.mem.PageTree(ctx, page)
}

func (w *Workspace) HasPage(ctx context.Context, page string) (bool, error) {
	return w.mem.HasPage(ctx, page)
}

func (w *Workspace) PageParent(ctx context.Context, page string) (string, error) {
	return w.mem.PageParent(ctx, page)
}

func (w *Workspace) SetPageParent(ctx context.Context, page, parentLocalID string) error {
	// Embedding is not represented in outline files; memory-only.
	return w.mem.SetPageParent(ctx, page, parentLocalID)
}

func (w *Workspace) Block(ctx context.Context, localID string) (*blocktree.Node, error) {
	return w.mem.Block(ctx, localID)
}

// RenamePage retitles the page and replaces its file: the new file is
// flushed first so the watcher sees a recognized self-write, then the old
// file is removed.
func (w *Workspace) RenamePage(ctx context.Context, oldTitle, newTitle string) error {
	if err := w.mem.RenamePage(ctx, oldTitle, newTitle); err != nil {
		return err
	}

	w.mu.Lock()
	oldPath, had := w.files[oldTitle]
	delete(w.files, oldTitle)
	if had {
		delete(w.paths, oldPath)
		delete(w.selfSums, oldPath)
	}
	err := w.flushLocked(newTitle)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	if had {
		if rmErr := os.Remove(oldPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("outline: remove %s: %w", oldPath, rmErr)
		}
	}
	return nil
}

func (w *Workspace) CreateBlock(ctx context.Context, parentID string, order int, content string) (string, error) {
	lid, err := w.mem.CreateBlock(ctx, parentID, order, content)
	if err != nil {
		return "", err
	}
	return lid, w.flush(w.mem.PageOf(lid))
}

func (w *Workspace) UpdateBlock(ctx context.Context, localID, content string) error {
	if err := w.mem.UpdateBlock(ctx, localID, content); err != nil {
		return err
	}
	return w.flush(w.mem.PageOf(localID))
}

func (w *Workspace) MoveBlock(ctx context.Context, localID, parentID string, order int) error {
	from := w.mem.PageOf(localID)
	if err := w.mem.MoveBlock(ctx, localID, parentID, order); err != nil {
		return err
	}
	to := w.mem.PageOf(localID)
	if from != "" && from != to {
		if err := w.flush(from); err != nil {
			return err
		}
	}
	return w.flush(to)
}

func (w *Workspace) RemoveBlock(ctx context.Context, localID string) error {
	page := w.mem.PageOf(localID)
	if err := w.mem.RemoveBlock(ctx, localID); err != nil {
		return err
	}
	return w.flush(page)
}

func (w *Workspace) SetProperty(ctx context.Context, localID, key, value string) error {
	if err := w.mem.SetProperty(ctx, localID, key, value); err != nil {
		return err
	}
	return w.flush(w.mem.PageOf(localID))
}
