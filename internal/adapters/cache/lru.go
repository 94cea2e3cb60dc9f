// Package cache implements the bounded result cache: LRU eviction with
// independent per-entry TTL expiry. An entry is invalid once either the
// LRU evicts it or its TTL elapses, whichever comes first.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// DefaultCapacity is the default maximum entry count.
const DefaultCapacity = 1000

// LRUCache is a bounded LRU of classification results keyed by content
// fingerprint. A single mutex guards the map and recency list; lost
// updates under concurrent stores for the same key are acceptable.
type LRUCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	capacity int

	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

type lruEntry struct {
	fingerprint string
	result      core.ClassificationResult
	expiresAt   time.Time
}

// NewLRUCache creates the cache and starts its background cleanup task.
func NewLRUCache(capacity int, cleanupFreq time.Duration, logger *zap.Logger) *LRUCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRUCache{
		entries:     make(map[string]*list.Element),
		order:       list.New(),
		capacity:    capacity,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go c.startCleanupTask()
	}

	return c
}

// Lookup returns the cached result for fingerprint. An expired but not
// yet evicted entry is evicted eagerly and reported as a miss.
func (c *LRUCache) Lookup(fingerprint string) (*core.ClassificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}

	c.order.MoveToFront(el)
	result := entry.result
	return &result, true
}

// Store inserts or replaces the entry for fingerprint, evicting the
// least-recently-used entry if the cache is full.
func (c *LRUCache) Store(fingerprint string, result *core.ClassificationResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &lruEntry{
		fingerprint: fingerprint,
		result:      *result,
		expiresAt:   time.Now().Add(ttl),
	}

	if el, ok := c.entries[fingerprint]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}
	c.entries[fingerprint] = c.order.PushFront(entry)
}

// Delete removes the entry for fingerprint if present.
func (c *LRUCache) Delete(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[fingerprint]; ok {
		c.removeLocked(el)
	}
}

// Len returns the current entry count.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cleanup removes expired entries.
func (c *LRUCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*lruEntry).expiresAt) {
			c.removeLocked(el)
			expiredCount++
		}
		el = prev
	}

	if expiredCount > 0 {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	}
	return nil
}

// Stop stops the background cleanup task.
func (c *LRUCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *LRUCache) removeLocked(el *list.Element) {
	entry := el.Value.(*lruEntry)
	c.order.Remove(el)
	delete(c.entries, entry.fingerprint)
}

func (c *LRUCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}
