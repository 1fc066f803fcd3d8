package flash

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/atinyakov/go-page-analyzer/internal/models"
)

// MemoryBackend keeps messages in process memory. Suitable for a single
// instance only.
type MemoryBackend struct {
	// mu makes Take a single read-and-delete step.
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryBackend{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (b *MemoryBackend) Set(_ context.Context, key string, f models.Flash, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache.Set(key, f, ttl)
	return nil
}

func (b *MemoryBackend) Take(_ context.Context, key string) (*models.Flash, error) {
	b.mu.Lock()
	v, ok := b.cache.Get(key)
	if ok {
		b.cache.Delete(key)
	}
	b.mu.Unlock()

	if !ok {
		return nil, nil
	}

	f, ok := v.(models.Flash)
	if !ok {
		return nil, nil
	}

	return &f, nil
}
