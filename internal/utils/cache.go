package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// ResponseCache 带过期时间的响应缓存（TMDB 列表页等）
type ResponseCache struct {
	store *cache.Cache
}

// NewResponseCache 创建响应缓存，ttl 为默认有效期
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl)}
}

// Get 获取缓存值
func (c *ResponseCache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set 使用默认有效期写入
func (c *ResponseCache) Set(key string, value any) {
	c.store.SetDefault(key, value)
}

// Remember 命中直接返回，否则调用 load 并缓存成功结果
func (c *ResponseCache) Remember(key string, load func() (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(key, v)
	return v, nil
}

// Flush 清空
func (c *ResponseCache) Flush() {
	c.store.Flush()
}

// Len 条目数
func (c *ResponseCache) Len() int {
	return c.store.ItemCount()
}

type cacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// LRUCache 定长 LRU + TTL
type LRUCache[T any] struct {
	storage *lru.Cache[string, cacheItem[T]]
	ttl     time.Duration
	now     func() time.Time
}

// NewLRUCache size 是最大条数，ttl 是有效期
func NewLRUCache[T any](size int, ttl time.Duration) *LRUCache[T] {
	c, _ := lru.New[string, cacheItem[T]](size)
	return &LRUCache[T]{storage: c, ttl: ttl, now: time.Now}
}

// Set 写入（已存在则更新）
func (c *LRUCache[T]) Set(key string, value T) {
	c.storage.Add(key, cacheItem[T]{Value: value, ExpiredAt: c.now().Add(c.ttl)})
}

// Get 读取，过期的条目顺便删除
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.Value, true
}

// Delete 删除
func (c *LRUCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Len 当前条数
func (c *LRUCache[T]) Len() int {
	return c.storage.Len()
}
