package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/gebo/internal/annotation"
	"github.com/starford/gebo/internal/checksum"
	"github.com/starford/gebo/internal/store"
)

// PublishFunc receives a freshly encoded page state for delivery to peers.
type PublishFunc func(pageID, sum string, doc *annotation.Document)

// Scheduler coalesces local edits into debounced encode+publish cycles and
// funnels remote states into reconcile cycles. At most one recompute is
// pending per page: scheduling a new one replaces the previous timer
// outright, it is never queued behind it.
type Scheduler struct {
	engine  *Engine
	states  store.StateStore
	delay   time.Duration
	publish PublishFunc
	logger  *slog.Logger

	ctx     context.Context
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewScheduler creates a Scheduler. ctx bounds every background encode the
// debounce timers fire.
func NewScheduler(ctx context.Context, eng *Engine, states store.StateStore, delay time.Duration, publish PublishFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:  eng,
		states:  states,
		delay:   delay,
		publish: publish,
		logger:  logger,
		ctx:     ctx,
		pending: make(map[string]*time.Timer),
	}
}

// NoteLocalEdit records a local change to the page and (re)starts its
// debounce timer. Rapid consecutive edits produce a single encode cycle
// after the inactivity window.
func (s *Scheduler) NoteLocalEdit(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[pageID]; ok {
		t.Stop()
	}
	s.pending[pageID] = time.AfterFunc(s.delay, func() { s.runEncode(pageID) })
}

// cancelPending stops a pending debounce timer without running it.
func (s *Scheduler) cancelPending(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[pageID]; ok {
		t.Stop()
		delete(s.pending, pageID)
	}
}

// Stop cancels every pending timer. In-flight cycles run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// ApplyRemote reconciles a remote state into the local tree. A pending
// local encode for the page is cancelled first; it would be computed
// against a tree the reconcile is about to mutate.
func (s *Scheduler) ApplyRemote(ctx context.Context, pageID string, doc *annotation.Document) ([]Op, error) {
	s.cancelPending(pageID)
	return s.engine.Reconcile(ctx, pageID, doc)
}

// EncodeNow encodes the page immediately, saves the state, and publishes it
// unless it is byte-identical to the last published state. Used for the
// initial share and by callers that must not wait out the debounce window.
func (s *Scheduler) EncodeNow(ctx context.Context, pageID string) (*annotation.Document, string, error) {
	s.cancelPending(pageID)

	doc, err := s.engine.EncodePage(ctx, pageID)
	if err != nil {
		return nil, "", err
	}
	sum, changed, err := s.saveIfChanged(pageID, doc)
	if err != nil {
		return nil, "", err
	}
	if changed && s.publish != nil {
		s.publish(pageID, sum, doc)
	}
	return doc, sum, nil
}

func (s *Scheduler) runEncode(pageID string) {
	s.mu.Lock()
	delete(s.pending, pageID)
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if _, _, err := s.EncodeNow(s.ctx, pageID); err != nil {
		s.logger.Warn("debounced encode failed",
			slog.String("page", pageID), slog.String("error", err.Error()))
	}
}

// saveIfChanged persists doc as the page state and reports whether it
// differed from the previously saved state.
func (s *Scheduler) saveIfChanged(pageID string, doc *annotation.Document) (string, bool, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", false, err
	}
	sum := checksum.Sum(raw)

	if last, err := s.states.LoadState(pageID); err != nil {
		return "", false, err
	} else if last != nil {
		lastRaw, merr := json.Marshal(last)
		if merr == nil && checksum.Sum(lastRaw) == sum {
			return sum, false, nil
		}
	}

	if err := s.states.SaveState(pageID, doc); err != nil {
		return "", false, err
	}
	return sum, true, nil
}
