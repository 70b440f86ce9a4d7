package texture

import "sync"

// Cache memoizes reference → Match lookups against one archive's Index and
// hands back the decoded asset from its Store. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	matches map[string]Match
	index   *Index
	store   *Store
}

// NewCache creates a cache over index and store.
func NewCache(index *Index, store *Store) *Cache {
	return &Cache{
		matches: make(map[string]Match),
		index:   index,
		store:   store,
	}
}

// Lookup resolves ref and returns the matching asset, or nil when no
// candidate matches or the store holds nothing under the matched name.
// The empty reference resolves to the first candidate.
func (c *Cache) Lookup(ref string) (*Asset, Match) {
	m := c.match(ref)
	if !m.Found() {
		return nil, m
	}
	a, ok := c.store.Get(m.Name)
	if !ok {
		return nil, Match{}
	}
	return a, m
}

func (c *Cache) match(ref string) Match {
	c.mu.RLock()
	m, ok := c.matches[ref]
	c.mu.RUnlock()
	if ok {
		return m
	}

	if ref == "" {
		m = c.index.ResolveDefault()
	} else {
		m = c.index.Resolve(ref)
	}

	c.mu.Lock()
	if prev, ok := c.matches[ref]; ok {
		m = prev
	} else {
		c.matches[ref] = m
	}
	c.mu.Unlock()
	return m
}
