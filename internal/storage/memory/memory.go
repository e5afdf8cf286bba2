// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// Backend stores the fleet snapshot and sweep data in memory and exports
// finished runs to JSON files. The snapshot survives across invocations
// through a fleet file in the output directory.
type Backend struct {
	cfg config.MemoryConfig

	ships map[string]*fleet.Ship // keyed by game ID

	run         *fleet.SweepRun
	engagements []fleet.EngagementRecord

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		ships: make(map[string]*fleet.Ship),
	}
}

// Init loads a previously written fleet file if one exists.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.loadFleetFile()
}

// Close writes the fleet file so the next invocation starts from the
// same snapshot.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.ships) == 0 {
		return nil
	}
	return b.writeFleetFile()
}

// SaveShip stores a fetched warship, replacing any earlier fetch of the
// same game ID.
func (b *Backend) SaveShip(s *fleet.Ship) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ship := *s
	b.ships[ship.ID] = &ship
	return nil
}

// LoadShip returns the stored ship for a game ID.
func (b *Backend) LoadShip(gameID string) (*fleet.Ship, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ship, ok := b.ships[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fleet.ErrShipNotFound, gameID)
	}
	out := *ship
	return &out, nil
}

// LoadFleet returns every stored ship ordered by game ID.
func (b *Backend) LoadFleet() ([]fleet.Ship, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ships := make([]fleet.Ship, 0, len(b.ships))
	for _, s := range b.ships {
		ships = append(ships, *s)
	}
	sort.Slice(ships, func(i, j int) bool {
		return ships[i].ID < ships[j].ID
	})
	return ships, nil
}

// StartRun begins collecting engagements for a new sweep, discarding any
// unfinished previous run.
func (b *Backend) StartRun(run *fleet.SweepRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := *run
	b.run = &r
	b.engagements = nil
	b.lastExportPath = ""
	return nil
}

// EndRun finalizes the run and exports it to the output directory.
func (b *Backend) EndRun(run *fleet.SweepRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no active run")
	}

	r := *run
	b.run = &r

	err := b.exportJSON()
	b.run = nil
	b.engagements = nil
	return err
}

// RecordEngagement appends one evaluated firing solution to the active run.
// Records arriving outside a run are kept too, so single evaluations can be
// replayed from tests.
func (b *Backend) RecordEngagement(e *fleet.EngagementRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.engagements = append(b.engagements, *e)
	return nil
}

// GetExportedFilePath returns the path of the last exported run file,
// or empty if nothing has been exported yet.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.lastExportPath
}
