package cache

import "sync"

// ColumnPrefsCache caches column visibility per table key.
type ColumnPrefsCache struct {
	mu    sync.RWMutex
	prefs map[string]map[string]bool
}

func NewColumnPrefsCache() *ColumnPrefsCache {
	return &ColumnPrefsCache{prefs: make(map[string]map[string]bool)}
}

// Get returns a copy of the stored visibility map of a table.
func (c *ColumnPrefsCache) Get(table string) (map[string]bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prefs[table]
	if !ok {
		return nil, false
	}
	out := make(map[string]bool, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, true
}

func (c *ColumnPrefsCache) Set(table string, visible map[string]bool) {
	cp := make(map[string]bool, len(visible))
	for k, v := range visible {
		cp[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs[table] = cp
}

func (c *ColumnPrefsCache) Delete(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prefs, table)
}
