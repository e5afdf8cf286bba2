package gunnery

import (
	"fmt"
	"math"
	"strings"
)

// ShellType selects the penetration formula branch and the calibration entry
// used for an evaluation.
type ShellType uint8

const (
	// AP is armor-piercing: full Krupp-scaled penetration formula.
	AP ShellType = iota
	// SAP is semi-armor-piercing. Game data encodes it as "CS".
	SAP
	// HE is high-explosive: penetration is a flat fraction of caliber.
	HE
)

func (t ShellType) String() string {
	switch t {
	case AP:
		return "AP"
	case SAP:
		return "SAP"
	case HE:
		return "HE"
	}
	return fmt.Sprintf("ShellType(%d)", uint8(t))
}

// ParseShellType maps an ammo type string onto a ShellType. Matching is
// case-insensitive and accepts the game's "CS" spelling for SAP.
func ParseShellType(s string) (ShellType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AP":
		return AP, nil
	case "SAP", "CS":
		return SAP, nil
	case "HE":
		return HE, nil
	}
	return AP, fmt.Errorf("unknown shell type %q", s)
}

// BallisticProfile holds the physical constants of one shell. Profiles are
// plain values: copy them freely, share them between goroutines, and treat
// them as immutable once built.
type BallisticProfile struct {
	// Name is carried for reporting only and never affects the math.
	Name string
	Type ShellType

	CaliberMM       float64
	MassKG          float64
	MuzzleVelocity  float64 // m/s
	DragCoefficient float64

	// Krupp scales the armor-piercing formula against the calibration
	// table's reference value. Zero keeps the reference scale.
	Krupp float64

	// ArmingVelocity overrides the calibration shatter threshold (m/s).
	// Zero keeps the table value.
	ArmingVelocity float64

	// RicochetDeg overrides the calibration ricochet bound, measured in
	// degrees from the plate normal. Zero keeps the table value.
	RicochetDeg float64
}

// Validate checks the positivity invariants every other entry point relies
// on. Callers get ErrInvalidProfile wrapped with the offending field.
func (p BallisticProfile) Validate() error {
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"caliber", p.CaliberMM},
		{"mass", p.MassKG},
		{"muzzle velocity", p.MuzzleVelocity},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidProfile, c.name, c.value)
		}
	}
	if math.IsNaN(p.DragCoefficient) || math.IsInf(p.DragCoefficient, 0) || p.DragCoefficient < 0 {
		return fmt.Errorf("%w: drag coefficient must not be negative, got %v", ErrInvalidProfile, p.DragCoefficient)
	}
	return nil
}

func (p BallisticProfile) diameterM() float64 { return p.CaliberMM / 1000 }
