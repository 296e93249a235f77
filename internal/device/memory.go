package device

import (
	"context"
	"sync"
)

// MemoryPort is an in-memory Port implementation. It backs local development
// and tests, and doubles as the reference for replace-not-duplicate semantics.
type MemoryPort struct {
	mu      sync.RWMutex
	entries map[int32]*Request
}

// NewMemoryPort creates an empty in-memory port
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{
		entries: make(map[int32]*Request),
	}
}

// Schedule stores the request, replacing any entry with the same id
func (p *MemoryPort) Schedule(ctx context.Context, req *Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[req.ID] = req
	return nil
}

// Cancel removes the given entries; unknown ids are ignored
func (p *MemoryPort) Cancel(ctx context.Context, ids []int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.entries, id)
	}
	return nil
}

// Pending returns the ids of all stored entries
func (p *MemoryPort) Pending(ctx context.Context) ([]int32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]int32, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

// Supported reports true
func (p *MemoryPort) Supported() bool {
	return true
}

// Get returns the stored entry for an id, or nil
func (p *MemoryPort) Get(id int32) *Request {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[id]
}
