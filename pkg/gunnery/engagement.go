// Package gunnery implements the ballistic core of the engagement engine: a
// forward trajectory integrator under gravity and drag, an elevation solver,
// and the penetration model that classifies an impact against an armor
// plate.
//
// Every entry point is a pure function of its inputs. Profiles and
// calibration tables are read-only values, so concurrent evaluations need no
// locking.
package gunnery

// EngagementReport bundles everything one shell-versus-plate query produces.
type EngagementReport struct {
	RangeM       float64
	ElevationDeg float64
	Impact       ImpactState
	Outcome      PenetrationOutcome
}

// EvaluateEngagement runs the full pipeline for one query: solve the
// elevation for the range, integrate the terminal state, classify it against
// the plate. Solver failures surface verbatim; there is no fallback
// trajectory to try.
func EvaluateEngagement(p BallisticProfile, targetRangeM float64, q ArmorQuery, cal Calibration, opts ...Option) (EngagementReport, error) {
	if err := p.Validate(); err != nil {
		return EngagementReport{}, err
	}
	elev, term, err := solve(p, targetRangeM, buildOptions(opts))
	if err != nil {
		return EngagementReport{}, err
	}
	impact := term.impact()
	return EngagementReport{
		RangeM:       targetRangeM,
		ElevationDeg: elev,
		Impact:       impact,
		Outcome:      EvaluatePenetration(p, impact, q, cal),
	}, nil
}
