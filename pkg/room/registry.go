package room

import (
	"slices"
	"sync"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// Registry maps room ids to live rooms. Rooms are never evicted; they live
// until the process exits.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*State)}
}

// Get returns the room with the given id.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[id]
	return st, ok
}

// GetOrCreate returns the room, creating it at scene first when absent.
// The second result reports whether the room was created.
func (r *Registry) GetOrCreate(id string, first *content.Scene) (*State, bool) {
	if st, ok := r.Get(id); ok {
		return st, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.rooms[id]; ok {
		return st, false
	}
	st := newState(id, first)
	r.rooms[id] = st
	return st, true
}

// IDs returns the ids of every room, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
