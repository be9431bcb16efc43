package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxItems limita o estado guardado; clientes anônimos por IP podem ser muitos
const DefaultMaxItems = 10000

// Cache guarda o estado de trabalho por cliente (última estimativa, último pedido).
// A expiração é deslizante: cada Get renova o TTL da chave.
// Quando cheio, Set descarta a entrada que expiraria primeiro.
type Cache struct {
	mu       sync.Mutex
	items    map[string]*cacheItem
	ttl      time.Duration
	maxItems int
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once

	hits      int64
	misses    int64
	evictions int64
}

type cacheItem struct {
	value      interface{}
	ttl        time.Duration
	expiration time.Time
}

// Stats returns cache statistics
type Stats struct {
	ItemCount int   `json:"item_count"`
	MaxItems  int   `json:"max_items"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
	Evictions int64 `json:"evictions"`
}

// Option ajusta o cache na criação
type Option func(*Cache)

// WithMaxItems define o limite de entradas (<= 0 mantém o padrão)
func WithMaxItems(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithCleanupInterval define o intervalo da limpeza em background
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewCache cria o cache e inicia a limpeza periódica; chame Stop ao final
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		items:    make(map[string]*cacheItem),
		ttl:      ttl,
		maxItems: DefaultMaxItems,
		interval: time.Minute,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanup()

	return c
}

// Get retorna o valor e renova sua expiração
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	now := time.Now()
	if !exists || now.After(item.expiration) {
		if exists {
			delete(c.items, key)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	item.expiration = now.Add(item.ttl)
	atomic.AddInt64(&c.hits, 1)
	return item.value, true
}

// Set stores a value in the cache with the default TTL
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictLocked()
	}

	c.items[key] = &cacheItem{
		value:      value,
		ttl:        ttl,
		expiration: time.Now().Add(ttl),
	}
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// InvalidatePrefix remove todas as chaves de um cliente (ex: "client:abc:")
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Stats retorna contadores do cache
func (c *Cache) Stats() Stats {
	return Stats{
		ItemCount: c.Size(),
		MaxItems:  c.maxItems,
		HitCount:  atomic.LoadInt64(&c.hits),
		MissCount: atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// evictLocked descarta primeiro o que já expirou; senão, a entrada mais próxima de expirar
func (c *Cache) evictLocked() {
	if c.removeExpiredLocked(time.Now()) > 0 {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
	)
	for key, item := range c.items {
		if oldestKey == "" || item.expiration.Before(oldest) {
			oldestKey, oldest = key, item.expiration
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
		atomic.AddInt64(&c.evictions, 1)
	}
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpiredLocked(time.Now())
}

func (c *Cache) removeExpiredLocked(now time.Time) int {
	removed := 0
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Stop stops the cleanup goroutine; safe to call more than once
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
