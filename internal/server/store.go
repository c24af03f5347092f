package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/pipeline"
)

// Store is the in-memory run registry. Runs are kept for the lifetime of
// the process; there is no persistence tier behind it.
type Store struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]pipeline.Snapshot
}

func NewStore() *Store {
	return &Store{runs: make(map[uuid.UUID]pipeline.Snapshot)}
}

func (s *Store) Put(id uuid.UUID, snap pipeline.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = snap
}

func (s *Store) Get(id uuid.UUID) (pipeline.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.runs[id]
	if !ok {
		return pipeline.Snapshot{}, common.NewAppError("RUN_NOT_FOUND", "no run with id "+id.String(), common.ErrNotFound)
	}
	return snap, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
