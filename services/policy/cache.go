package policy

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
)

// cacheEntry holds the active policy of one company. A nil policy records
// that the company has no active policy.
type cacheEntry struct {
	companyID  uuid.UUID
	policy     *models.Policy
	insertedAt time.Time
	element    *list.Element
}

func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// PolicyCache is an in-memory LRU cache with TTL holding the active policy per company.
// Safe for concurrent use.
type PolicyCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List // front is most recently used
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewPolicyCache creates a PolicyCache holding at most maxSize companies for ttl each
func NewPolicyCache(maxSize int, ttl time.Duration) *PolicyCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &PolicyCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached active policy of a company.
// ok is false on a miss; a hit may carry a nil policy.
func (c *PolicyCache) Get(companyID uuid.UUID) (policy *models.Policy, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[companyID]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(companyID)
		}
		return nil, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.policy, true
}

// Set stores the active policy of a company. Pass nil to cache its absence.
func (c *PolicyCache) Set(companyID uuid.UUID, policy *models.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[companyID]; exists {
		entry.policy = policy
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		companyID:  companyID,
		policy:     policy,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(companyID)
	c.entries[companyID] = entry
}

// Invalidate drops the entry of a company
func (c *PolicyCache) Invalidate(companyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(companyID)
}

// InvalidatePolicy drops every entry currently holding the given policy
func (c *PolicyCache) InvalidatePolicy(policyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for companyID, entry := range c.entries {
		if entry.policy != nil && entry.policy.ID == policyID {
			c.removeEntry(companyID)
		}
	}
}

// Clear removes all entries
func (c *PolicyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *PolicyCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// removeEntry must be called with the lock held
func (c *PolicyCache) removeEntry(companyID uuid.UUID) {
	if entry, exists := c.entries[companyID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, companyID)
	}
}

// evictLRU must be called with the lock held
func (c *PolicyCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	c.removeEntry(back.Value.(uuid.UUID))
}

// CleanupExpired removes expired entries and returns how many were dropped
func (c *PolicyCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for companyID, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			c.removeEntry(companyID)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker runs CleanupExpired every interval until stopCh is closed.
// It blocks; run it in its own goroutine.
func (c *PolicyCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
