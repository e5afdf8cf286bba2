// Package session tracks which ship and sweep run the engine is working on.
package session

import (
	"log/slog"
	"sync"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// Context holds the current ship and sweep run state
type Context struct {
	mu   sync.RWMutex
	Ship *fleet.Ship
	Run  *fleet.SweepRun
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Ship: &fleet.Ship{Name: "No ship loaded"},
	}
}

// GetShip returns the current ship
func (sc *Context) GetShip() *fleet.Ship {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Ship
}

// GetRun returns the active sweep run, or nil outside a sweep
func (sc *Context) GetRun() *fleet.SweepRun {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Run
}

// SetShip sets the current ship without touching the run
func (sc *Context) SetShip(ship *fleet.Ship) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Ship = ship
}

// SetRun sets the current ship and the run being swept against it
func (sc *Context) SetRun(ship *fleet.Ship, run *fleet.SweepRun) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Ship = ship
	sc.Run = run
}

// ClearRun drops the active run once the sweep completes
func (sc *Context) ClearRun() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Run = nil
}

// LogAttrs returns the attributes the logging context handler stamps on
// every record: the ship's game ID and, during a sweep, the shell being
// swept.
func (sc *Context) LogAttrs() []slog.Attr {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	attrs := make([]slog.Attr, 0, 2)
	if sc.Ship != nil && sc.Ship.ID != "" {
		attrs = append(attrs, slog.String("ship", sc.Ship.ID))
	}
	if sc.Run != nil && sc.Run.Shell != "" {
		attrs = append(attrs, slog.String("shell", sc.Run.Shell))
	}
	return attrs
}
