package store

import (
	"sync"

	"github.com/efreitasn/seatswap/internal/domain"
)

// SwapStore is a thread-safe in-memory store for executed swap cycles.
// Cycles are append-only and chronological.
type SwapStore struct {
	mu     sync.RWMutex
	cycles []domain.SwapCycle
}

// NewSwapStore creates an empty SwapStore.
func NewSwapStore() *SwapStore {
	return &SwapStore{}
}

// Append adds an executed cycle to the chronological list.
func (s *SwapStore) Append(c domain.SwapCycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles = append(s.cycles, c)
}

// List returns all executed cycles in execution order.
// Returns an empty slice if no cycles have been executed.
func (s *SwapStore) List() []domain.SwapCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]domain.SwapCycle, len(s.cycles))
	copy(result, s.cycles)
	return result
}

// ListByParticipant returns all cycles in which the participant gave up
// or received a seat, in execution order.
func (s *SwapStore) ListByParticipant(id string) []domain.SwapCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SwapCycle, 0)
	for _, c := range s.cycles {
		for _, leg := range c.Legs {
			if leg.From == id || leg.To == id {
				result = append(result, c)
				break
			}
		}
	}
	return result
}

// Count returns the number of executed cycles.
func (s *SwapStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cycles)
}
