package megaplan

import (
	"sync"

	"workguard/internal/audit"
)

// EmployeeCache is a read-through map from employee id to the enriched
// employee record. Entries are never mutated after insertion; the cache is
// only appended to or cleared wholesale (hourly housekeeping or shutdown).
//
// Concurrent misses for the same id may both fetch; last write wins, which
// is harmless because entries are immutable.
type EmployeeCache struct {
	mu sync.RWMutex
	m  map[string]*audit.Employee
}

func NewEmployeeCache() *EmployeeCache {
	return &EmployeeCache{m: map[string]*audit.Employee{}}
}

func (c *EmployeeCache) Get(id string) (*audit.Employee, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[id]
	return e, ok
}

func (c *EmployeeCache) Put(id string, e *audit.Employee) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = e
}

func (c *EmployeeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Clear drops every entry.
func (c *EmployeeCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.m)
	c.m = map[string]*audit.Employee{}
	return n
}
