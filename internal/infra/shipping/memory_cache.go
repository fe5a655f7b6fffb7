package shipping

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/model"
)

type memoryEntry struct {
	options   []model.ShippingOption
	expiresAt time.Time
}

// MemoryCache はRedisが無いとき用。期限切れは読むときに消す
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]model.ShippingOption, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	out := make([]model.ShippingOption, len(e.options))
	copy(out, e.options)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, options []model.ShippingOption, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]model.ShippingOption, len(options))
	copy(stored, options)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{options: stored, expiresAt: c.now().Add(ttl)}
	return nil
}
