package cache

import (
	"sort"
	"sync"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// FleetCache holds parsed ships so evaluation commands avoid storage reads.
// Latency in these calls is critical while a sweep fans out.
type FleetCache struct {
	m     sync.Mutex
	Ships map[string]fleet.Ship
}

func NewFleetCache() *FleetCache {
	return &FleetCache{
		m:     sync.Mutex{},
		Ships: make(map[string]fleet.Ship),
	}
}

func (c *FleetCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Ships = make(map[string]fleet.Ship)
}

func (c *FleetCache) Lock() {
	c.m.Lock()
}

func (c *FleetCache) Unlock() {
	c.m.Unlock()
}

func (c *FleetCache) Get(id string) (fleet.Ship, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if s, ok := c.Ships[id]; ok {
		return s, true
	}
	return fleet.Ship{}, false
}

func (c *FleetCache) Add(s fleet.Ship) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Ships[s.ID] = s
}

func (c *FleetCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Ships)
}

// All returns the cached ships ordered by game ID.
func (c *FleetCache) All() []fleet.Ship {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]fleet.Ship, 0, len(c.Ships))
	for _, s := range c.Ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
