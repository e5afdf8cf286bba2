package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

func TestFleetCache_NewFleetCache(t *testing.T) {
	cache := NewFleetCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Ships)
	assert.Len(t, cache.Ships, 0)
}

func TestFleetCache_AddAndGet(t *testing.T) {
	cache := NewFleetCache()

	ship := fleet.Ship{
		ID:    "PJSB018",
		Name:  "Yamato",
		Class: fleet.Battleship,
		Tier:  10,
	}

	cache.Add(ship)

	got, ok := cache.Get("PJSB018")
	require.True(t, ok, "expected to find PJSB018")
	assert.Equal(t, "Yamato", got.Name)
	assert.Equal(t, fleet.Battleship, got.Class)
}

func TestFleetCache_Get_NotFound(t *testing.T) {
	cache := NewFleetCache()

	_, ok := cache.Get("PJSB999")
	assert.False(t, ok, "expected not to find PJSB999")
}

func TestFleetCache_Reset(t *testing.T) {
	cache := NewFleetCache()

	cache.Add(fleet.Ship{ID: "PJSB018", Name: "Yamato"})
	cache.Add(fleet.Ship{ID: "PASC020", Name: "Des Moines"})

	assert.Equal(t, 2, cache.Len())

	cache.Reset()

	assert.Equal(t, 0, cache.Len())

	// Verify we can still add ships after reset
	cache.Add(fleet.Ship{ID: "PGSD109", Name: "Z-52"})
	_, ok := cache.Get("PGSD109")
	assert.True(t, ok, "expected to find ship added after reset")
}

func TestFleetCache_LockUnlock(t *testing.T) {
	cache := NewFleetCache()

	// Test Lock/Unlock don't cause deadlock
	cache.Lock()
	// Directly modify the map while holding the lock
	cache.Ships["PJSB018"] = fleet.Ship{ID: "PJSB018", Name: "Direct Add"}
	cache.Unlock()

	got, ok := cache.Get("PJSB018")
	require.True(t, ok, "expected to find ship added while holding lock")
	assert.Equal(t, "Direct Add", got.Name)
}

func TestFleetCache_All_SortedByID(t *testing.T) {
	cache := NewFleetCache()

	cache.Add(fleet.Ship{ID: "PJSB018"})
	cache.Add(fleet.Ship{ID: "PASC020"})
	cache.Add(fleet.Ship{ID: "PGSD109"})

	all := cache.All()
	require.Len(t, all, 3)
	assert.Equal(t, "PASC020", all[0].ID)
	assert.Equal(t, "PGSD109", all[1].ID)
	assert.Equal(t, "PJSB018", all[2].ID)
}

func TestFleetCache_Concurrent(t *testing.T) {
	cache := NewFleetCache()
	var wg sync.WaitGroup

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Add(fleet.Ship{ID: fmt.Sprintf("PJSB%03d", n)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("PJSB%03d", n))
		}(i)
	}
	wg.Wait()
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(100)
	assert.Equal(t, int(100), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	assert.Equal(t, int(1), c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	// Concurrent increments
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}
