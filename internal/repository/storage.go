package repository

import (
	"context"
	"errors"

	"github.com/patrickmn/go-cache"
)

// ErrKeyNotFound 存储中不存在该键
var ErrKeyNotFound = errors.New("repository: key not found")

// Storage 持久化键值存储（相当于浏览器的 localStorage）
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryStorage 进程内存储，重启即丢失，用于测试和临时运行
type MemoryStorage struct {
	items *cache.Cache
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	data := v.([]byte)
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.items.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (s *MemoryStorage) Close() error {
	s.items.Flush()
	return nil
}
