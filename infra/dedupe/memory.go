package dedupe

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduper keeps fingerprints in process memory. Claims are not shared
// between replicas.
type MemoryDeduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

// NewMemoryDeduper creates an in-process deduper
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryDeduper{
		ttl:     ttl,
		now:     time.Now,
		claimed: make(map[string]time.Time),
	}
}

func (d *MemoryDeduper) Claim(_ context.Context, fingerprint string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for fp, expires := range d.claimed {
		if !now.Before(expires) {
			delete(d.claimed, fp)
		}
	}

	if _, ok := d.claimed[fingerprint]; ok {
		return false, nil
	}
	d.claimed[fingerprint] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, fingerprint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, fingerprint)
	return nil
}
