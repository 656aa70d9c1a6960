package service

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// lruEntry is a doubly-linked list node for PlanCache.
type lruEntry struct {
	key  uint64
	plan *planner.EvaluationPlan
	prev *lruEntry
	next *lruEntry
}

// PlanCache is a bounded LRU cache keyed by an xxhash digest of the
// policy document bytes that produced a plan. Caching is valid because
// Plan is pure: the same policy document under the same built Planner
// always produces an equal plan.
type PlanCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry
	tail    *lruEntry
	maxSize int
}

// NewPlanCache creates a PlanCache holding at most maxSize entries.
func NewPlanCache(maxSize int) *PlanCache {
	return &PlanCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
	}
}

// Get returns the cached plan for key, if present, promoting it to
// most-recently-used.
func (c *PlanCache) Get(key uint64) (*planner.EvaluationPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.plan, true
	}
	return nil, false
}

// Put stores plan under key, evicting the least recently used entry if
// the cache is at capacity.
func (c *PlanCache) Put(key uint64, plan *planner.EvaluationPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.plan = plan
		c.moveToHeadLocked(e)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	e := &lruEntry{key: key, plan: plan}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Clear empties the cache.
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry, c.maxSize)
	c.head, c.tail = nil, nil
}

// Size returns the current entry count.
func (c *PlanCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PlanCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *PlanCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *PlanCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *PlanCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// computeCacheKey hashes raw policy-document bytes, the input a PlanCache
// is keyed by.
func computeCacheKey(policyBytes []byte) uint64 {
	return xxhash.Sum64(policyBytes)
}
