package history

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/analysis-core/internal/model"
)

// MemoryStore is an in-process Store used by tests and as the zero-setup
// CLI fallback. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	records   []model.HistoryRecord
	ids       map[string]struct{}
	retention Retention
}

// NewMemory creates an empty MemoryStore.
func NewMemory(retention Retention) *MemoryStore {
	return &MemoryStore{
		ids:       make(map[string]struct{}),
		retention: retention,
	}
}

func (s *MemoryStore) Append(_ context.Context, record model.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.ids[record.ID]; seen {
		return nil
	}
	s.ids[record.ID] = struct{}{}
	s.records = append(s.records, record)
	s.trimLocked()
	return nil
}

func (s *MemoryStore) FindSimilar(_ context.Context, questionText string, limit int) ([]model.HistoryRecord, error) {
	return rankBySimilarity(s.snapshot(), questionText, limit), nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	snap := s.snapshot()
	// Stored in append order; newest last.
	out := make([]model.HistoryRecord, 0, limit)
	for i := len(snap) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, snap[i])
	}
	return out, nil
}

func (s *MemoryStore) Counts(_ context.Context) (map[model.OutcomeStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.OutcomeStatus]int)
	for _, r := range s.records {
		counts[r.OutcomeStatus]++
	}
	return counts, nil
}

func (s *MemoryStore) ErrorPatterns(_ context.Context) (map[model.ErrorCategory]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make(map[model.ErrorCategory]int)
	for _, r := range s.records {
		if r.ErrorCategory != "" {
			patterns[r.ErrorCategory]++
		}
	}
	return patterns, nil
}

func (s *MemoryStore) Prune(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.records)
	s.trimLocked()
	return before - len(s.records), nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// snapshot copies the record slice so reads never observe a concurrent
// append mid-way.
func (s *MemoryStore) snapshot() []model.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.HistoryRecord{}, s.records...)
}

// trimLocked applies retention, oldest-first. Records are kept in append
// order, so FIFO eviction is a front cut.
func (s *MemoryStore) trimLocked() {
	if s.retention.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-s.retention.MaxAge)
		kept := s.records[:0]
		for _, r := range s.records {
			if !r.Timestamp.Before(cutoff) {
				kept = append(kept, r)
			} else {
				delete(s.ids, r.ID)
			}
		}
		s.records = kept
	}

	if s.retention.MaxRecords > 0 && len(s.records) > s.retention.MaxRecords {
		drop := len(s.records) - s.retention.MaxRecords
		for _, r := range s.records[:drop] {
			delete(s.ids, r.ID)
		}
		s.records = append([]model.HistoryRecord{}, s.records[drop:]...)
	}
}
