// internal/buffer/store.go
package buffer

import (
	"sync"

	"pose-sentinel/internal/pose"
)

// Store holds a bounded, time-ordered pose history per tracked entity.
// Buffers are created on first sighting and only removed by explicit Clear;
// memory is bounded by capacity times the number of distinct entity ids.
//
// The shard map is guarded by an RWMutex taken only for lookup; each entity
// has its own lock, so concurrent batches for distinct entities do not
// contend. Writers to the same entity must be serialized by the caller.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entities map[string]*ring
}

// Status reports one entity's buffer occupancy.
type Status struct {
	Frames int  `json:"frames"`
	Ready  bool `json:"ready_for_analysis"`
}

type ring struct {
	mu     sync.Mutex
	frames []pose.Frame
	head   int
	size   int
	total  int
	lastTS float64
}

// NewStore creates a store whose per-entity buffers hold capacity frames.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		entities: make(map[string]*ring),
	}
}

func (s *Store) entity(id string) *ring {
	s.mu.RLock()
	r, ok := s.entities[id]
	s.mu.RUnlock()
	if ok {
		return r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.entities[id]; ok {
		return r
	}
	r = &ring{frames: make([]pose.Frame, s.capacity), lastTS: -1}
	s.entities[id] = r
	return r
}

// Append adds a frame to the entity's buffer, evicting the oldest frame when
// at capacity. Frames must arrive in strictly increasing timestamp order.
func (s *Store) Append(entityID string, f pose.Frame) error {
	r := s.entity(entityID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size > 0 && f.Timestamp <= r.lastTS {
		return &pose.InvalidFrameError{
			EntityID: entityID,
			Index:    f.Index,
			Reason:   "timestamp not increasing within buffer",
		}
	}

	idx := (r.head + r.size) % len(r.frames)
	r.frames[idx] = f
	if r.size < len(r.frames) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.frames)
	}
	r.total++
	r.lastTS = f.Timestamp
	return nil
}

// Window returns a copy of the entity's most recent n frames, oldest first.
// Fewer frames are returned when the buffer holds fewer; an unknown entity
// yields nil. Callers must check the length.
func (s *Store) Window(entityID string, n int) []pose.Frame {
	s.mu.RLock()
	r, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]pose.Frame, n)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.frames[(start+i)%len(r.frames)]
	}
	return out
}

// Len reports the number of frames currently buffered for the entity.
func (s *Store) Len(entityID string) int {
	s.mu.RLock()
	r, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Total reports the number of frames ever appended for the entity, including
// evicted ones. The engine derives synthetic timestamps from it.
func (s *Store) Total(entityID string) int {
	s.mu.RLock()
	r, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Clear drops the entity's history entirely. Other entities are unaffected.
func (s *Store) Clear(entityID string) {
	s.mu.Lock()
	delete(s.entities, entityID)
	s.mu.Unlock()
}

// Occupancy reports per-entity frame counts and readiness against the given
// minimum window length.
func (s *Store) Occupancy(min int) map[string]Status {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make(map[string]Status, len(ids))
	for _, id := range ids {
		n := s.Len(id)
		out[id] = Status{Frames: n, Ready: n >= min}
	}
	return out
}

// Entities returns the ids currently tracked.
func (s *Store) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	return ids
}
