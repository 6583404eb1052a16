// Package monitoring keeps the global and per-room monitoring switches that
// decide which rooms the recorder persists. Rooms are monitored unless they
// have been switched off.
package monitoring

import (
	"context"
	"sync"
)

// Store holds the monitoring flags
type Store interface {
	// Enabled reports whether building-wide monitoring is running.
	Enabled(ctx context.Context) (bool, error)
	// ToggleGlobal flips building-wide monitoring and returns the new state.
	ToggleGlobal(ctx context.Context) (bool, error)
	// RoomEnabled reports whether a room is monitored.
	RoomEnabled(ctx context.Context, roomID string) (bool, error)
	// ToggleRoom flips a room's flag and returns the new state.
	ToggleRoom(ctx context.Context, roomID string) (bool, error)
	// RoomStates returns the flag of every requested room.
	RoomStates(ctx context.Context, roomIDs []string) (map[string]bool, error)
}

// CountEnabled returns how many rooms in states are monitored.
func CountEnabled(states map[string]bool) int {
	n := 0
	for _, on := range states {
		if on {
			n++
		}
	}
	return n
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu       sync.RWMutex
	paused   bool
	disabled map[string]bool
}

// NewMemoryStore creates a store with monitoring on everywhere
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{disabled: make(map[string]bool)}
}

func (s *MemoryStore) Enabled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.paused, nil
}

func (s *MemoryStore) ToggleGlobal(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	return !s.paused, nil
}

func (s *MemoryStore) RoomEnabled(_ context.Context, roomID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled[roomID], nil
}

func (s *MemoryStore) ToggleRoom(_ context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled[roomID] {
		delete(s.disabled, roomID)
		return true, nil
	}
	s.disabled[roomID] = true
	return false, nil
}

func (s *MemoryStore) RoomStates(_ context.Context, roomIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		states[id] = !s.disabled[id]
	}
	return states, nil
}
