package handlers

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultNamePool is handed out in order to connecting displays.
var DefaultNamePool = []string{"Mario", "Luigi", "Peach"}

// Registry maps live connections to their assigned display names.
// Every mutation and every snapshot happens under mu.
type Registry struct {
	pool     []string
	clients  map[uuid.UUID]*Client
	order    []uuid.UUID // join order, drives the roster
	overflow uint64      // fallback label counter, never reset
	mu       sync.Mutex
}

func NewRegistry(pool []string) *Registry {
	if len(pool) == 0 {
		pool = DefaultNamePool
	}
	return &Registry{
		pool:    append([]string(nil), pool...),
		clients: make(map[uuid.UUID]*Client),
	}
}

// Add registers c, assigns it the first free pool name (or a fallback label
// when the pool is exhausted) and returns that name.
func (r *Registry) Add(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Name = r.nextNameLocked()
	r.clients[c.ID] = c
	r.order = append(r.order, c.ID)
	return c.Name
}

func (r *Registry) nextNameLocked() string {
	used := make(map[string]struct{}, len(r.clients))
	for _, c := range r.clients {
		used[c.Name] = struct{}{}
	}
	for _, name := range r.pool {
		if _, taken := used[name]; !taken {
			return name
		}
	}
	for {
		r.overflow++
		name := fmt.Sprintf("client-%d", r.overflow)
		if _, taken := used[name]; !taken {
			return name
		}
	}
}

// Remove drops the record for id. It reports the freed name and whether the
// record was still present, so a second remove of the same connection
// (close after eviction) is a no-op.
func (r *Registry) Remove(id uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return "", false
	}
	delete(r.clients, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return c.Name, true
}

// Snapshot copies the live records in join order. Broadcasts iterate the
// copy, never the map.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.clients[id])
	}
	return out
}

// Names returns the roster in join order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.clients[id].Name)
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
