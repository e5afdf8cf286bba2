package worker

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/shellfall/engine/v2/internal/armor"
	"github.com/shellfall/engine/v2/internal/dispatcher"
	"github.com/shellfall/engine/v2/internal/influx"
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// RegisterHandlers registers all engine commands with the dispatcher. Every
// command returns its result synchronously so callers can print it; the
// parallelism lives inside the sweep pool, not in the dispatch path.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Fetches must land in the cache before anything fires at the ship.
	d.Register(":FETCH:SHIP:", m.handleFetchShip, dispatcher.Logged())
	d.Register(":FETCH:FLEET:", m.handleFetchFleet, dispatcher.Logged())

	d.Register(":EVALUATE:", m.handleEvaluate, dispatcher.Logged())
	d.Register(":SWEEP:", m.handleSweep, dispatcher.Logged())
	d.Register(":MAXRANGE:", m.handleMaxRange, dispatcher.Logged())
	d.Register(":ATTACK:", m.handleAttack, dispatcher.Logged())
}

func (m *Manager) handleFetchShip(e dispatcher.Event) (any, error) {
	id, err := strArg(e.Args, 0, "ship id")
	if err != nil {
		return nil, err
	}
	ship, err := m.fetchShip(id, argAt(e.Args, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ship: %w", err)
	}
	return ship, nil
}

func (m *Manager) handleFetchFleet(e dispatcher.Event) (any, error) {
	ships, err := m.fetchFleet()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fleet: %w", err)
	}
	return ships, nil
}

func (m *Manager) handleEvaluate(e dispatcher.Event) (any, error) {
	shipID, err := strArg(e.Args, 0, "ship id")
	if err != nil {
		return nil, err
	}
	rangeM, err := floatArg(e.Args, 2, "range")
	if err != nil {
		return nil, err
	}
	thickness, err := floatArg(e.Args, 3, "target thickness")
	if err != nil {
		return nil, err
	}
	obliquity, err := floatArg(e.Args, 4, "target obliquity")
	if err != nil {
		return nil, err
	}

	ship, err := m.resolveShip(shipID)
	if err != nil {
		return nil, err
	}
	shell, _, err := resolveShell(ship, argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}

	query := gunnery.ArmorQuery{ThicknessMM: thickness, ObliquityDeg: obliquity}
	rep, err := gunnery.EvaluateEngagement(shell.Profile(), rangeM, query, m.deps.Calibration, m.SolverOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s at %.0f m: %w", shell.Name, rangeM, err)
	}

	rec := fleet.NewEngagementRecord(ship.ID, shell.Name, query, rep)
	if m.deps.Influx != nil {
		bucket, pt := influx.EngagementPoint(&rec)
		_ = m.deps.Influx.WritePoint(context.Background(), bucket, pt)
	}
	return rec, nil
}

func (m *Manager) handleSweep(e dispatcher.Event) (any, error) {
	shipID, err := strArg(e.Args, 0, "ship id")
	if err != nil {
		return nil, err
	}
	start, err := floatArg(e.Args, 2, "start range")
	if err != nil {
		return nil, err
	}
	end, err := floatArg(e.Args, 3, "end range")
	if err != nil {
		return nil, err
	}
	step, err := floatArg(e.Args, 4, "step")
	if err != nil {
		return nil, err
	}
	thickness, err := floatArg(e.Args, 5, "target thickness")
	if err != nil {
		return nil, err
	}
	obliquity, err := floatArg(e.Args, 6, "target obliquity")
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		step = m.deps.Sweep.Step
	}

	ship, err := m.resolveShip(shipID)
	if err != nil {
		return nil, err
	}
	shell, _, err := resolveShell(ship, argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}

	run := &fleet.SweepRun{
		ShipID:             ship.ID,
		Shell:              shell.Name,
		StartRangeM:        start,
		EndRangeM:          end,
		StepM:              step,
		TargetThicknessMM:  thickness,
		TargetObliquityDeg: obliquity,
		StartedAt:          time.Now(),
	}
	if err := m.RunSweep(context.Background(), &ship, shell, run); err != nil {
		return nil, fmt.Errorf("failed to sweep %s: %w", shell.Name, err)
	}
	return run, nil
}

// MaxRangeResult pairs a shell's maximum reach with the elevation that
// produces it.
type MaxRangeResult struct {
	RangeM       float64
	ElevationDeg float64
}

func (m *Manager) handleMaxRange(e dispatcher.Event) (any, error) {
	shipID, err := strArg(e.Args, 0, "ship id")
	if err != nil {
		return nil, err
	}
	ship, err := m.resolveShip(shipID)
	if err != nil {
		return nil, err
	}
	shell, _, err := resolveShell(ship, argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}
	rangeM, elevationDeg, err := gunnery.MaxRange(shell.Profile(), m.SolverOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to find maximum range for %s: %w", shell.Name, err)
	}
	return MaxRangeResult{RangeM: rangeM, ElevationDeg: elevationDeg}, nil
}

func (m *Manager) handleAttack(e dispatcher.Event) (any, error) {
	attackerID, err := strArg(e.Args, 0, "ship id")
	if err != nil {
		return nil, err
	}
	targetID, err := strArg(e.Args, 2, "target id")
	if err != nil {
		return nil, err
	}
	rangeM, err := floatArg(e.Args, 3, "range")
	if err != nil {
		return nil, err
	}
	azimuthDeg, err := floatArg(e.Args, 4, "azimuth")
	if err != nil {
		return nil, err
	}

	attacker, err := m.resolveShip(attackerID)
	if err != nil {
		return nil, err
	}
	shell, battery, err := resolveShell(attacker, argAt(e.Args, 1))
	if err != nil {
		return nil, err
	}
	target, err := m.resolveShip(targetID)
	if err != nil {
		return nil, err
	}
	hull, ok := target.ArmoredHull()
	if !ok {
		return nil, fmt.Errorf("target %s has no armor model", targetID)
	}

	// A seed argument turns on dispersion; without one the shot aims dead
	// center.
	var offset gunnery.Offset
	if seedArg := argAt(e.Args, 5); seedArg != "" {
		seed, err := strconv.ParseInt(seedArg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad seed argument %q: %w", seedArg, err)
		}
		rng := rand.New(rand.NewSource(seed))
		offset = battery.Dispersion.Dispersion().Sample(rng, azimuthDeg, rangeM)
	}

	mesh := armor.FromPlates(hull.Plates)
	res, err := armor.SimulateAttack(mesh, shell, m.deps.Calibration, rangeM, azimuthDeg, offset, m.SolverOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate attack on %s: %w", targetID, err)
	}
	return res, nil
}

// resolveShip returns the cached ship, falling back to the storage snapshot
// when the cache misses. Loaded ships are cached for the next lookup.
func (m *Manager) resolveShip(id string) (fleet.Ship, error) {
	if ship, ok := m.deps.FleetCache.Get(id); ok {
		return ship, nil
	}
	if loader, ok := m.backend.(storage.FleetLoader); ok {
		if ship, err := loader.LoadShip(id); err == nil {
			m.deps.FleetCache.Add(*ship)
			return *ship, nil
		}
	}
	return fleet.Ship{}, fmt.Errorf("%w: %s", ErrShipNotLoaded, id)
}

func resolveShell(ship fleet.Ship, name string) (fleet.Shell, fleet.Battery, error) {
	shell, battery, ok := ship.FindShell(name)
	if !ok {
		if name == "" {
			return fleet.Shell{}, fleet.Battery{}, fmt.Errorf("%w: ship %s has no artillery", ErrNoSuchShell, ship.ID)
		}
		return fleet.Shell{}, fleet.Battery{}, fmt.Errorf("%w: %q, ship %s carries %v", ErrNoSuchShell, name, ship.ID, ship.ShellNames())
	}
	return shell, battery, nil
}

func strArg(args []string, i int, name string) (string, error) {
	if i >= len(args) || args[i] == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return args[i], nil
}

func floatArg(args []string, i int, name string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s argument %q: %w", name, args[i], err)
	}
	return v, nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
