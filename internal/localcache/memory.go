package localcache

import (
	"context"
	"sync"
)

// MemoryCache 是纯内存实现，只在测试中使用
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	// Writes 统计真正落盘的写入次数，用于验证相等短路
	Writes int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && string(old) == string(value) {
		return nil
	}
	owned := make([]byte, len(value))
	copy(owned, value)
	c.entries[key] = owned
	c.Writes++
	return nil
}
