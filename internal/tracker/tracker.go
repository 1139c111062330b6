// Package tracker owns the in-memory collection of uploaded items and the
// per-item analysis state machine. It is the single writer for item state;
// everything else reads immutable snapshots.
package tracker

import (
	"sync"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
)

// ChangeFunc receives a copy of an item every time its state changes.
type ChangeFunc func(domain.UploadedItem)

// Tracker holds per-item analysis state. All methods are safe for concurrent
// use; a single mutex gives the exclusive-writer guarantee.
type Tracker struct {
	mu       sync.Mutex
	items    map[string]*domain.UploadedItem
	order    []string
	onChange ChangeFunc
	logger   zerolog.Logger
}

// New constructs an empty tracker.
func New(logger zerolog.Logger) *Tracker {
	return &Tracker{
		items:  make(map[string]*domain.UploadedItem),
		logger: logger.With().Str("component", "tracker").Logger(),
	}
}

// OnChange registers a callback invoked with a copy of the item after every
// state change. The callback runs under the tracker lock and must not call
// back into the tracker.
func (t *Tracker) OnChange(fn ChangeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Register adds a freshly uploaded item in the pending state.
func (t *Tracker) Register(id, filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.items[id]; exists {
		t.logger.Warn().Str("item_id", id).Msg("duplicate registration ignored")
		return
	}
	item := &domain.UploadedItem{ID: id, Filename: filename, Status: domain.AnalysisPending}
	t.items[id] = item
	t.order = append(t.order, id)
	t.notifyLocked(item)
}

// MarkAnalyzing records that an analysis request has been dispatched for the
// item. Valid only from pending.
func (t *Tracker) MarkAnalyzing(id string) error {
	return t.transition(id, domain.AnalysisAnalyzing, func(item *domain.UploadedItem) {
		item.Result = nil
		item.Error = ""
	})
}

// Complete records a successful, fully parsed analysis response.
func (t *Tracker) Complete(id string, result *domain.AnalysisResult) error {
	return t.transition(id, domain.AnalysisCompleted, func(item *domain.UploadedItem) {
		item.Result = result
		item.Error = ""
	})
}

// Fail records a transport, remote, or parse failure for the item.
func (t *Tracker) Fail(id, message string) error {
	return t.transition(id, domain.AnalysisFailed, func(item *domain.UploadedItem) {
		item.Result = nil
		item.Error = message
	})
}

// Reset starts a fresh user-triggered retry: terminal back to pending.
func (t *Tracker) Reset(id string) error {
	return t.transition(id, domain.AnalysisPending, func(item *domain.UploadedItem) {
		item.Result = nil
		item.Error = ""
	})
}

// validTransitions lists every legal edge of the item state machine.
// pending -> failed covers upload failures and cancelled dispatches;
// terminal -> pending is the explicit user retry.
var validTransitions = map[domain.AnalysisStatus][]domain.AnalysisStatus{
	domain.AnalysisPending:   {domain.AnalysisAnalyzing, domain.AnalysisFailed},
	domain.AnalysisAnalyzing: {domain.AnalysisCompleted, domain.AnalysisFailed},
	domain.AnalysisCompleted: {domain.AnalysisPending},
	domain.AnalysisFailed:    {domain.AnalysisPending},
}

func allowed(from, to domain.AnalysisStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition applies mutate and moves the item to the target status. Invalid
// transitions are logged and ignored (the item is left untouched) and the
// StateError is returned for callers that want to observe them.
func (t *Tracker) transition(id string, to domain.AnalysisStatus, mutate func(*domain.UploadedItem)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[id]
	if !ok {
		t.logger.Warn().Str("item_id", id).Str("to", string(to)).Msg("transition for unknown item ignored")
		return domain.ErrNotFound
	}
	if !allowed(item.Status, to) {
		err := &domain.StateError{ItemID: id, From: item.Status, To: to}
		t.logger.Warn().Str("item_id", id).Str("from", string(item.Status)).Str("to", string(to)).
			Msg("invalid transition ignored")
		return err
	}
	mutate(item)
	item.Status = to
	t.notifyLocked(item)
	return nil
}

// Get returns a copy of one item.
func (t *Tracker) Get(id string) (domain.UploadedItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[id]
	if !ok {
		return domain.UploadedItem{}, false
	}
	return copyItem(item), true
}

// Snapshot returns copies of every item in registration order.
func (t *Tracker) Snapshot() []domain.UploadedItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.UploadedItem, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, copyItem(t.items[id]))
	}
	return out
}

func (t *Tracker) notifyLocked(item *domain.UploadedItem) {
	if t.onChange != nil {
		t.onChange(copyItem(item))
	}
}

func copyItem(item *domain.UploadedItem) domain.UploadedItem {
	out := *item
	if item.Result != nil {
		result := *item.Result
		out.Result = &result
	}
	return out
}
