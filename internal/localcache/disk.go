package localcache

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/peterbourgon/diskv/v3"
)

// DiskCache 把本地缓存放到磁盘上（离线开发环境用）
type DiskCache struct {
	d *diskv.Diskv
}

func NewDiskCache(basePath string) *DiskCache {
	return &DiskCache{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
	}
}

func (c *DiskCache) Get(_ context.Context, key string) ([]byte, error) {
	value, err := c.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (c *DiskCache) Set(_ context.Context, key string, value []byte) error {
	if old, err := c.d.Read(key); err == nil && bytes.Equal(old, value) {
		// 内容没有变化时跳过写入
		return nil
	}
	return c.d.Write(key, value)
}
