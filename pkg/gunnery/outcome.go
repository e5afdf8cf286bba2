package gunnery

import "fmt"

// OutcomeKind classifies a shell-versus-plate engagement. The set is closed:
// EvaluatePenetration always returns exactly one of these.
type OutcomeKind uint8

const (
	// NonPenetration: the shell arrived intact but too weak for the plate.
	NonPenetration OutcomeKind = iota
	// Penetration: effective penetration met or exceeded the plate.
	Penetration
	// Ricochet: the effective angle exceeded the shell's deflection bound.
	Ricochet
	// Overmatch: the caliber was so large relative to the plate that the
	// shell penetrates regardless of angle.
	Overmatch
	// Shatter: the shell arrived below its fuze arming velocity and broke
	// up on the plate.
	Shatter
)

func (k OutcomeKind) String() string {
	switch k {
	case NonPenetration:
		return "non-penetration"
	case Penetration:
		return "penetration"
	case Ricochet:
		return "ricochet"
	case Overmatch:
		return "overmatch"
	case Shatter:
		return "shatter"
	}
	return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
}

// Penetrates reports whether the shell defeated the plate.
func (k OutcomeKind) Penetrates() bool {
	return k == Penetration || k == Overmatch
}

// PenetrationOutcome pairs the classification with the computed effective
// penetration, carried for diagnostics whatever the kind.
type PenetrationOutcome struct {
	Kind OutcomeKind
	// EffectivePenetrationMM is the angle-adjusted penetration the shell
	// brought to the plate.
	EffectivePenetrationMM float64
}

func (o PenetrationOutcome) String() string {
	return fmt.Sprintf("%s (%.0f mm effective)", o.Kind, o.EffectivePenetrationMM)
}
