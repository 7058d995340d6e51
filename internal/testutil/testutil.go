// Package testutil provides shared test helpers for setting up notebooks and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/notebook"
	"github.com/starford/gebo/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gebo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNotebook creates an in-memory notebook seeded with one page of blocks.
// Pass nil nodes for an empty page.
func TestNotebook(t *testing.T, page string, nodes []*blocktree.Node) *notebook.Memory {
	t.Helper()
	m := notebook.NewMemory()
	m.AddPage(page, nodes)
	return m
}

// Block builds a tree node for seeding test notebooks.
func Block(content string, children ...*blocktree.Node) *blocktree.Node {
	return &blocktree.Node{Content: content, Children: children}
}

// Silent returns a logger that discards everything.
func Silent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
