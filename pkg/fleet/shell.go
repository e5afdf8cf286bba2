package fleet

import "github.com/shellfall/engine/v2/pkg/gunnery"

// Shell is one ammunition option exactly as the game data describes it.
// Diameters arrive in meters and are stored here in millimeters.
type Shell struct {
	Name            string
	AmmoType        string // raw game string: AP, CS or HE
	CaliberMM       float64
	MassKG          float64
	MuzzleVelocity  float64
	DragCoefficient float64
	Krupp           float64

	// AlphaDamage and HEPiercingMM feed the armor damage model.
	AlphaDamage  float64
	HEPiercingMM float64

	// DetonatorS and DetonatorThresholdMM drive the fuze inside the armor
	// raytracer: the threshold arms the fuze, the time bounds its travel.
	DetonatorS           float64
	DetonatorThresholdMM float64
}

// Profile converts the shell into a ballistic profile for the integrator.
// Unknown ammo type strings degrade to AP, matching the parser's validation
// having already rejected anything unknown.
func (s Shell) Profile() gunnery.BallisticProfile {
	st, err := gunnery.ParseShellType(s.AmmoType)
	if err != nil {
		st = gunnery.AP
	}
	return gunnery.BallisticProfile{
		Name:            s.Name,
		Type:            st,
		CaliberMM:       s.CaliberMM,
		MassKG:          s.MassKG,
		MuzzleVelocity:  s.MuzzleVelocity,
		DragCoefficient: s.DragCoefficient,
		Krupp:           s.Krupp,
	}
}

// Dispersion converts the battery parameters into the sampling model.
func (d DispersionSpec) Dispersion() gunnery.Dispersion {
	return gunnery.Dispersion{
		HorizontalM: d.HorizontalM,
		VerticalM:   d.VerticalM,
		MaxRangeM:   d.MaxRangeM,
		Sigma:       d.Sigma,
	}
}
