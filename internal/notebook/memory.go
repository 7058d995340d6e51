package notebook

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/blocktree"
	"github.com/starford/gebo/internal/markup"
)

// Memory is an in-process Adapter. The outline workspace layers file
// persistence on top of it; tests use it directly.
type Memory struct {
	mu     sync.Mutex
	pages  map[string][]string // page -> ordered root block ids
	blocks map[string]*memBlock
	embeds map[string]string // page -> embedding block local id
}

type memBlock struct {
	content  string
	view     blocktree.ViewType
	parent   string // block local id or page id
	children []string
}

// NewMemory returns an empty in-memory notebook.
func NewMemory() *Memory {
	return &Memory{
		pages:  make(map[string][]string),
		blocks: make(map[string]*memBlock),
		embeds: make(map[string]string),
	}
}

// Verify Memory satisfies Adapter at compile time.
var _ Adapter = (*Memory)(nil)

// AddPage registers a page with the given tree. Nodes without a LocalID are
// assigned one. Replaces the page if it already exists.
func (m *Memory) AddPage(page string, nodes []*blocktree.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.pages[page] {
		m.dropSubtree(id)
	}
	m.pages[page] = m.registerAll(nodes, page)
}

// RemovePage deletes a page and its blocks.
func (m *Memory) RemovePage(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.pages[page] {
		m.dropSubtree(id)
	}
	delete(m.pages, page)
	delete(m.embeds, page)
}

// EmbedPage marks page as embedded in the given block, so PageParent
// resolves to it.
func (m *Memory) EmbedPage(page, blockLocalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeds[page] = blockLocalID
}

// PageOf returns the page a block belongs to, following the parent chain.
// Empty string when the block is unknown.
func (m *Memory) PageOf(localID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := localID
	for {
		b, ok := m.blocks[id]
		if !ok {
			if _, isPage := m.pages[id]; isPage {
				return id
			}
			return ""
		}
		id = b.parent
	}
}

// Pages returns all page identifiers.
func (m *Memory) Pages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.pages))
	for p := range m.pages {
		out = append(out, p)
	}
	return out
}

func (m *Memory) registerAll(nodes []*blocktree.Node, parent string) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		id := n.LocalID
		if id == "" {
			id = uuid.NewString()
			n.LocalID = id
		}
		b := &memBlock{content: n.Content, view: n.ViewType, parent: parent}
		m.blocks[id] = b
		b.children = m.registerAll(n.Children, id)
		ids = append(ids, id)
	}
	return ids
}

func (m *Memory) dropSubtree(id string) {
	b, ok := m.blocks[id]
	if !ok {
		return
	}
	for _, c := range b.children {
		m.dropSubtree(c)
	}
	delete(m.blocks, id)
}

func (m *Memory) materialize(id string) *blocktree.Node {
	b := m.blocks[id]
	n := &blocktree.Node{Content: b.content, LocalID: id, ViewType: b.view}
	for _, c := range b.children {
		n.Children = append(n.Children, m.materialize(c))
	}
	return n
}

// PageTree returns a deep snapshot of the page's tree.
func (m *Memory) PageTree(_ context.Context, page string) ([]*blocktree.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.pages[page]
	if !ok {
		return nil, fmt.Errorf("notebook: page %q: %w", page, apperr.ErrMissingPage)
	}
	out := make([]*blocktree.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.materialize(id))
	}
	return out, nil
}

func (m *Memory) HasPage(_ context.Context, page string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pages[page]
	return ok, nil
}

func (m *Memory) PageParent(_ context.Context, page string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embeds[page], nil
}

func (m *Memory) SetPageParent(_ context.Context, page, parentLocalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[page]; !ok {
		return fmt.Errorf("notebook: page %q: %w", page, apperr.ErrMissingPage)
	}
	if parentLocalID == "" {
		delete(m.embeds, page)
		return nil
	}
	if _, ok := m.blocks[parentLocalID]; !ok {
		return fmt.Errorf("notebook: embed under %q: %w", parentLocalID, apperr.ErrMissingParent)
	}
	m.embeds[page] = parentLocalID
	return nil
}

func (m *Memory) RenamePage(_ context.Context, oldTitle, newTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.pages[oldTitle]
	if !ok {
		return fmt.Errorf("notebook: page %q: %w", oldTitle, apperr.ErrMissingPage)
	}
	if _, exists := m.pages[newTitle]; exists {
		return fmt.Errorf("notebook: rename to %q: %w", newTitle, apperr.ErrIdentifierCollision)
	}
	delete(m.pages, oldTitle)
	m.pages[newTitle] = ids
	for _, id := range ids {
		m.blocks[id].parent = newTitle
	}
	if embed, ok := m.embeds[oldTitle]; ok {
		delete(m.embeds, oldTitle)
		m.embeds[newTitle] = embed
	}
	return nil
}

func (m *Memory) Block(_ context.Context, localID string) (*blocktree.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[localID]; !ok {
		return nil, fmt.Errorf("notebook: block %q: %w", localID, apperr.ErrNotFound)
	}
	return m.materialize(localID), nil
}

func (m *Memory) CreateBlock(_ context.Context, parentID string, order int, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.blocks[id] = &memBlock{content: content, parent: parentID}

	if parent, ok := m.blocks[parentID]; ok {
		parent.children = insertAt(parent.children, id, order)
		return id, nil
	}
	if _, ok := m.pages[parentID]; ok {
		m.pages[parentID] = insertAt(m.pages[parentID], id, order)
		return id, nil
	}
	delete(m.blocks, id)
	return "", fmt.Errorf("notebook: create under %q: %w", parentID, apperr.ErrMissingParent)
}

func (m *Memory) UpdateBlock(_ context.Context, localID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[localID]
	if !ok {
		return fmt.Errorf("notebook: block %q: %w", localID, apperr.ErrNotFound)
	}
	b.content = content
	return nil
}

func (m *Memory) MoveBlock(_ context.Context, localID, parentID string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[localID]
	if !ok {
		return fmt.Errorf("notebook: block %q: %w", localID, apperr.ErrNotFound)
	}
	if _, isBlock := m.blocks[parentID]; !isBlock {
		if _, isPage := m.pages[parentID]; !isPage {
			return fmt.Errorf("notebook: move under %q: %w", parentID, apperr.ErrMissingParent)
		}
	}

	m.detach(localID, b.parent)
	b.parent = parentID
	if parent, ok := m.blocks[parentID]; ok {
		parent.children = insertAt(parent.children, localID, order)
	} else {
		m.pages[parentID] = insertAt(m.pages[parentID], localID, order)
	}
	return nil
}

func (m *Memory) RemoveBlock(_ context.Context, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[localID]
	if !ok {
		return fmt.Errorf("notebook: block %q: %w", localID, apperr.ErrNotFound)
	}
	m.detach(localID, b.parent)
	m.dropSubtree(localID)
	return nil
}

func (m *Memory) SetProperty(_ context.Context, localID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[localID]
	if !ok {
		return fmt.Errorf("notebook: block %q: %w", localID, apperr.ErrNotFound)
	}
	b.content = markup.SetProperty(b.content, key, value)
	return nil
}

func (m *Memory) detach(id, parentID string) {
	if parent, ok := m.blocks[parentID]; ok {
		parent.children = remove(parent.children, id)
		return
	}
	if _, ok := m.pages[parentID]; ok {
		m.pages[parentID] = remove(m.pages[parentID], id)
	}
}

func insertAt(ids []string, id string, order int) []string {
	if order < 0 {
		order = 0
	}
	if order > len(ids) {
		order = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:order]...)
	out = append(out, id)
	return append(out, ids[order:]...)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
