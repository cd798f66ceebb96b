package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps the latest record per run in memory. It is the default
// store: sweep results are transient session data unless a shared Redis
// store is configured. Safe for concurrent use.
//
// Records are deep-copied on Put and GetLatest so a stored record can never
// be mutated through slices the caller still holds.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]RunRecord
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]RunRecord),
	}
}

// Put stores a record, replacing any existing record for the same run.
func (s *MemoryStore) Put(ctx context.Context, record RunRecord) error {
	if record.Run == "" {
		return fmt.Errorf("record run name cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Run] = copyRecord(record)
	return nil
}

// GetLatest retrieves the most recent record for a run.
func (s *MemoryStore) GetLatest(ctx context.Context, run string) (RunRecord, bool, error) {
	select {
	case <-ctx.Done():
		return RunRecord{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[run]
	if !found {
		return RunRecord{}, false, nil
	}
	return copyRecord(record), true, nil
}

// Len returns the number of stored records. Useful for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Delete removes the record for a run. Returns true if one existed.
func (s *MemoryStore) Delete(run string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.records[run]
	delete(s.records, run)
	return existed
}

func copyRecord(r RunRecord) RunRecord {
	out := r
	out.Points = append([]float64(nil), r.Points...)
	out.JobIDs = append([]string(nil), r.JobIDs...)
	if r.Series != nil {
		out.Series = make(map[string][]float64, len(r.Series))
		for k, v := range r.Series {
			out.Series[k] = append([]float64(nil), v...)
		}
	}
	if r.StdErr != nil {
		out.StdErr = make(map[string][]float64, len(r.StdErr))
		for k, v := range r.StdErr {
			out.StdErr[k] = append([]float64(nil), v...)
		}
	}
	return out
}
