package workflow

import (
	"context"
	"sync"
)

// MemoryCheckpointer keeps per-thread turn history in process memory. It is
// the default checkpoint store; histories are created on first use and live
// until evicted by the host.
type MemoryCheckpointer struct {
	mu      sync.RWMutex
	threads map[string][]Message
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{threads: make(map[string][]Message)}
}

func (c *MemoryCheckpointer) Load(_ context.Context, threadID string) ([]Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history, ok := c.threads[threadID]
	if !ok {
		return nil, nil
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out, nil
}

func (c *MemoryCheckpointer) Save(_ context.Context, threadID string, history []Message) error {
	stored := make([]Message, len(history))
	copy(stored, history)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[threadID] = stored
	return nil
}

// Evict drops a thread's history. Expiry policy is the host's concern.
func (c *MemoryCheckpointer) Evict(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.threads, threadID)
}
