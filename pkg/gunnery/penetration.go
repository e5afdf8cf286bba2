package gunnery

import "math"

// ArmorQuery describes the target plate for one evaluation.
type ArmorQuery struct {
	ThicknessMM float64
	// ObliquityDeg tilts the plate relative to vertical; it adds onto the
	// trajectory impact angle to form the effective angle of attack.
	ObliquityDeg float64
}

// EvaluatePenetration classifies an impact against a plate. The function is
// total: effective angles clamp into [0, 90] instead of erroring, and a nil
// calibration means the stock table. Branch priority is overmatch, then
// ricochet, then shatter, then the thickness comparison; an overmatching
// caliber must not deflect however steep the hit.
func EvaluatePenetration(p BallisticProfile, impact ImpactState, q ArmorQuery, cal Calibration) PenetrationOutcome {
	entry := cal.ForType(p.Type)

	theta := clampAngle(impact.AngleDeg + q.ObliquityDeg)

	// Normalization eats part of the angle before the cosine adjustment;
	// the ricochet check still judges the raw effective angle.
	adjusted := theta - entry.NormalizationDeg
	if adjusted < 0 {
		adjusted = 0
	}
	base := basePenetration(p, impact.Velocity, entry)
	outcome := PenetrationOutcome{EffectivePenetrationMM: base * math.Cos(radians(adjusted))}

	switch {
	case entry.OvermatchRatio > 0 && p.CaliberMM >= entry.OvermatchRatio*q.ThicknessMM:
		outcome.Kind = Overmatch
	case theta > ricochetBound(p, entry):
		outcome.Kind = Ricochet
	case impact.Velocity < armingVelocity(p, entry):
		outcome.Kind = Shatter
	case outcome.EffectivePenetrationMM >= q.ThicknessMM:
		outcome.Kind = Penetration
	default:
		outcome.Kind = NonPenetration
	}
	return outcome
}

// NominalPenetration reports the zero-angle penetration in mm for a shell
// arriving at the given velocity. Callers that walk a shell through several
// plates start from this figure and apply obliquity per plate themselves.
func NominalPenetration(p BallisticProfile, velocity float64, cal Calibration) float64 {
	return basePenetration(p, velocity, cal.ForType(p.Type))
}

// basePenetration computes the nominal zero-angle penetration in mm.
func basePenetration(p BallisticProfile, velocity float64, entry ShellCalibration) float64 {
	if entry.CaliberFraction > 0 {
		return entry.CaliberFraction * p.CaliberMM
	}
	scale := entry.PenetrationScale
	if entry.ReferenceKrupp > 0 && p.Krupp > 0 {
		scale *= p.Krupp / entry.ReferenceKrupp
	}
	if velocity < 0 {
		velocity = 0
	}
	return scale * math.Pow(velocity, entry.VelocityExponent) *
		math.Pow(p.MassKG, entry.MassExponent) /
		math.Pow(p.CaliberMM, entry.CaliberExponent)
}

func ricochetBound(p BallisticProfile, entry ShellCalibration) float64 {
	if p.RicochetDeg > 0 {
		return p.RicochetDeg
	}
	return entry.RicochetDeg
}

func armingVelocity(p BallisticProfile, entry ShellCalibration) float64 {
	if p.ArmingVelocity > 0 {
		return p.ArmingVelocity
	}
	return entry.ArmingVelocity
}

func clampAngle(deg float64) float64 {
	switch {
	case math.IsNaN(deg), deg < 0:
		return 0
	case deg > 90:
		return 90
	}
	return deg
}
