package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

// MemoryCache implements Store in process memory. Expired entries are
// dropped when read.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]memoryItem
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryItem), now: time.Now}
}

func (mc *MemoryCache) GetMany(_ context.Context, keys ...string) ([][]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		item, ok := mc.data[k]
		if ok && !item.expireAt.IsZero() && now.After(item.expireAt) {
			delete(mc.data, k)
			ok = false
		}
		if !ok {
			return nil, ErrCacheMiss
		}
		out[i] = append([]byte(nil), item.value...)
	}
	return out, nil
}

func (mc *MemoryCache) SetMany(_ context.Context, entries map[string][]byte, expiration time.Duration) error {
	var expireAt time.Time
	if expiration > 0 {
		expireAt = mc.now().Add(expiration)
	}
	mc.mu.Lock()
	for k, v := range entries {
		mc.data[k] = memoryItem{value: append([]byte(nil), v...), expireAt: expireAt}
	}
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, k := range keys {
		delete(mc.data, k)
	}
	mc.mu.Unlock()
	return nil
}

func (mc *MemoryCache) Close() error { return nil }
