// internal/storage/memory.go
package storage

import (
	"sync"

	"pose-sentinel/internal/engine"
)

const defaultCapacity = 100 // keep the last 100 batch results

// MemoryStore keeps a bounded history of recent batch results for the API
// and for priming newly connected websocket clients.
type MemoryStore struct {
	mu       sync.RWMutex
	buffer   []*engine.BatchResult
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{
		buffer:   make([]*engine.BatchResult, 0, capacity),
		capacity: capacity,
	}
}

func (s *MemoryStore) Add(result *engine.BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) >= s.capacity {
		// Remove the oldest element
		s.buffer = s.buffer[1:]
	}
	s.buffer = append(s.buffer, result)
}

func (s *MemoryStore) GetRecent(count int) []*engine.BatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > len(s.buffer) {
		count = len(s.buffer)
	}
	// Return a copy to avoid race conditions if the caller modifies it
	result := make([]*engine.BatchResult, count)
	copy(result, s.buffer[len(s.buffer)-count:])
	return result
}

func (s *MemoryStore) GetAll() []*engine.BatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*engine.BatchResult, len(s.buffer))
	copy(result, s.buffer)
	return result
}
