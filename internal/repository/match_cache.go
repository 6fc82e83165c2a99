package repository

import (
	"container/list"
	"sync"

	"hqbot/internal/models"
)

// DefaultMatchCacheSize bounds the terminal-match cache when no size is given.
const DefaultMatchCacheSize = 1024

// MatchCache is a thread-safe LRU cache of terminal matches. Finished and
// cancelled matches never change again, so entries never go stale; the least
// recently read entry is evicted once the cache is full.
type MatchCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

func NewMatchCache(capacity int) *MatchCache {
	if capacity <= 0 {
		capacity = DefaultMatchCacheSize
	}
	return &MatchCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns a copy of the cached match.
func (c *MatchCache) Get(id string) (*models.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, found := c.entries[id]
	if !found {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*models.Match).Clone(), true
}

// Set stores m if it is terminal and ignores it otherwise.
func (c *MatchCache) Set(m *models.Match) {
	if m == nil || !m.Status.Terminal() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, found := c.entries[m.ID]; found {
		el.Value = m.Clone()
		c.order.MoveToFront(el)
		return
	}
	c.entries[m.ID] = c.order.PushFront(m.Clone())
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*models.Match).ID)
	}
}

func (c *MatchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// Size returns the number of cached entries.
func (c *MatchCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
