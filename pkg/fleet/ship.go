package fleet

import (
	"errors"
	"fmt"
)

// ErrUnsupportedClass marks vehicle classes the engine does not model, such
// as submarines and auxiliaries. Parsers skip these rather than failing the
// whole fetch.
var ErrUnsupportedClass = errors.New("fleet: unsupported ship class")

// ErrShipNotFound is returned by storage lookups for ships that were never
// fetched into the snapshot.
var ErrShipNotFound = errors.New("fleet: ship not found")

// ShipClass mirrors the game's class strings.
type ShipClass string

const (
	Destroyer       ShipClass = "destroyer"
	Cruiser         ShipClass = "cruiser"
	Battleship      ShipClass = "battleship"
	AircraftCarrier ShipClass = "aircarrier"
)

// ParseShipClass maps a game class string onto a ShipClass. Submarines and
// auxiliaries return ErrUnsupportedClass so callers can skip them.
func ParseShipClass(s string) (ShipClass, error) {
	switch s {
	case "destroyer":
		return Destroyer, nil
	case "cruiser":
		return Cruiser, nil
	case "battleship":
		return Battleship, nil
	case "aircarrier":
		return AircraftCarrier, nil
	case "auxiliary", "submarine":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedClass, s)
	}
	return "", fmt.Errorf("fleet: unknown ship class %q", s)
}

// Ship is one parsed warship with every hull configuration the game data
// carries. ID is the game's vehicle identifier, e.g. PJSB018.
type Ship struct {
	ID     string
	Name   string
	Nation string
	Class  ShipClass
	Tier   int
	Hulls  []HullConfiguration
}

// HullConfiguration is one researchable hull: its physical envelope, its
// main battery and its armor mesh.
type HullConfiguration struct {
	Name    string
	SpeedMS float64
	LengthM float64
	Battery []Battery
	Plates  []ArmorPlate
}

// Battery is one artillery component: the dispersion of its director and
// its turrets.
type Battery struct {
	Dispersion DispersionSpec
	Guns       []Gun
}

// Gun is a single turret with its ammunition options.
type Gun struct {
	Name   string
	Shells []Shell
}

// DispersionSpec carries the game's fall-of-shot parameters for a battery.
type DispersionSpec struct {
	HorizontalM float64
	VerticalM   float64
	MaxRangeM   float64
	Sigma       float64
}

// ArmorPlate is one transformed triangle of the armor mesh. MaterialID is
// the raw scheme type; the armor package classifies it.
type ArmorPlate struct {
	Vertices    [3][3]float64
	ThicknessMM float64
	MaterialID  int
}

// battleTiers[t-1] lists the battle tiers a tier-t ship can be drawn into.
var battleTiers = [10][]int{
	{1},
	{2, 3},
	{3, 4},
	{4, 5},
	{5, 6, 7},
	{6, 7, 8},
	{7, 8, 9},
	{8, 9, 10},
	{9, 10},
	{10},
}

// CanBattleWith reports whether two ships share at least one battle tier
// under the matchmaking table. Out-of-range tiers never match.
func (s Ship) CanBattleWith(other Ship) bool {
	if s.Tier < 1 || s.Tier > 10 || other.Tier < 1 || other.Tier > 10 {
		return false
	}
	for _, mine := range battleTiers[s.Tier-1] {
		for _, theirs := range battleTiers[other.Tier-1] {
			if mine == theirs {
				return true
			}
		}
	}
	return false
}

// MainBattery returns the first gunned hull's first battery, which is what
// single-ship evaluations fire. The bool is false for ships without
// artillery, such as carriers.
func (s Ship) MainBattery() (Battery, bool) {
	for _, hull := range s.Hulls {
		if len(hull.Battery) > 0 {
			return hull.Battery[0], true
		}
	}
	return Battery{}, false
}

// FindShell locates a shell by name across every battery of every hull and
// returns the battery that fires it alongside. An empty name selects the
// first shell of the main battery. The bool is false when the ship carries
// no such shell.
func (s Ship) FindShell(name string) (Shell, Battery, bool) {
	if name == "" {
		battery, ok := s.MainBattery()
		if !ok {
			return Shell{}, Battery{}, false
		}
		for _, gun := range battery.Guns {
			if len(gun.Shells) > 0 {
				return gun.Shells[0], battery, true
			}
		}
		return Shell{}, Battery{}, false
	}
	for _, hull := range s.Hulls {
		for _, battery := range hull.Battery {
			for _, gun := range battery.Guns {
				for _, shell := range gun.Shells {
					if shell.Name == name {
						return shell, battery, true
					}
				}
			}
		}
	}
	return Shell{}, Battery{}, false
}

// ShellNames lists every distinct shell name the ship carries, in battery
// order. Lookup failures report these as the valid choices.
func (s Ship) ShellNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, hull := range s.Hulls {
		for _, battery := range hull.Battery {
			for _, gun := range battery.Guns {
				for _, shell := range gun.Shells {
					if !seen[shell.Name] {
						seen[shell.Name] = true
						names = append(names, shell.Name)
					}
				}
			}
		}
	}
	return names
}

// ArmoredHull returns the first hull configuration that carries an armor
// mesh. The bool is false when no hull has parsed plates.
func (s Ship) ArmoredHull() (HullConfiguration, bool) {
	for _, hull := range s.Hulls {
		if len(hull.Plates) > 0 {
			return hull, true
		}
	}
	return HullConfiguration{}, false
}
