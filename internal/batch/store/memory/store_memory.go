package memory

import (
	"context"
	"sort"
	"sync"

	"istr/internal/batch"
	"istr/pkg/platform/sentinel"
)

// InMemoryLedger keeps run summaries in process memory, bounded to capacity
// entries; the oldest runs are evicted first.
type InMemoryLedger struct {
	mu       sync.RWMutex
	runs     map[string]batch.RunSummary
	order    []string
	capacity int
}

func New(capacity int) *InMemoryLedger {
	if capacity <= 0 {
		capacity = 10_000
	}
	return &InMemoryLedger{runs: make(map[string]batch.RunSummary), capacity: capacity}
}

func (l *InMemoryLedger) Save(_ context.Context, run batch.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.runs[run.ID]; exists {
		return sentinel.ErrConflict
	}
	l.runs[run.ID] = run
	l.order = append(l.order, run.ID)
	if len(l.order) > l.capacity {
		delete(l.runs, l.order[0])
		l.order = l.order[1:]
	}
	return nil
}

func (l *InMemoryLedger) Get(_ context.Context, id string) (*batch.RunSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	run, ok := l.runs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &run, nil
}

// ListRecent returns up to limit runs, newest first.
func (l *InMemoryLedger) ListRecent(_ context.Context, limit int) ([]batch.RunSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]batch.RunSummary, 0, len(l.runs))
	for _, run := range l.runs {
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
