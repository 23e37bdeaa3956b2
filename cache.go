package diggs

import (
	"sync"

	"github.com/moolekkari/diggs-validator/xmlparser"
)

// cache memoizes resolved entities for the lifetime of one validation call.
// Keys are the system identifiers exactly as the engine requested them.
type cache struct {
	mu    sync.RWMutex
	items map[string]*xmlparser.Entity
}

func newCache() *cache {
	return &cache{items: make(map[string]*xmlparser.Entity)}
}

func (c *cache) get(id string) (*xmlparser.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entity, ok := c.items[id]
	return entity, ok
}

func (c *cache) put(id string, entity *xmlparser.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = entity
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
