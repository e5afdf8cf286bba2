package gunnery

import (
	"fmt"
	"math"
)

// Range over elevation rises to a single apex and falls again, so the solver
// ternary-searches the apex once and then bisects the ascending branch. The
// ascending branch always holds the flat, low-arc solution naval guns use
// when two elevations reach the same range.
const (
	maxElevationDeg  = 90.0
	apexSearchRounds = 60
)

// SolveElevation finds the barrel elevation in degrees that lands the shell
// within the configured tolerance of targetRangeM, preferring the low arc.
// It fails with ErrNoSolution when the range is beyond the profile's reach
// or the iteration budget runs out, and with ErrInvalidProfile when the
// profile itself is unusable.
func SolveElevation(p BallisticProfile, targetRangeM float64, opts ...Option) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	elev, _, err := solve(p, targetRangeM, buildOptions(opts))
	return elev, err
}

// Integrate solves the elevation for targetRangeM and returns the terminal
// impact state at that range.
func Integrate(p BallisticProfile, targetRangeM float64, opts ...Option) (ImpactState, error) {
	if err := p.Validate(); err != nil {
		return ImpactState{}, err
	}
	_, term, err := solve(p, targetRangeM, buildOptions(opts))
	if err != nil {
		return ImpactState{}, err
	}
	return term.impact(), nil
}

// MaxRange returns the profile's maximum reachable range in meters and the
// elevation in degrees that produces it.
func MaxRange(p BallisticProfile, opts ...Option) (rangeM, elevationDeg float64, err error) {
	if err = p.Validate(); err != nil {
		return 0, 0, err
	}
	o := buildOptions(opts)
	elevationDeg, rangeM = apex(p, o.step)
	return rangeM, elevationDeg, nil
}

func rangeAt(p BallisticProfile, elevationDeg, step float64) TrajectorySample {
	return fly(p, radians(elevationDeg), step, nil)
}

// apex locates the elevation of maximum range. Range is unimodal in
// elevation for this drag model, so a fixed number of ternary-search rounds
// pins the apex far tighter than the landing tolerance needs.
func apex(p BallisticProfile, step float64) (elevationDeg, rangeM float64) {
	lo, hi := 0.0, maxElevationDeg
	for i := 0; i < apexSearchRounds; i++ {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if rangeAt(p, m1, step).Distance < rangeAt(p, m2, step).Distance {
			lo = m1
		} else {
			hi = m2
		}
	}
	mid := (lo + hi) / 2
	return mid, rangeAt(p, mid, step).Distance
}

// solve bisects the ascending branch [0, apex] for the target range and
// returns the elevation together with the terminal sample it produced.
func solve(p BallisticProfile, targetRangeM float64, o options) (float64, TrajectorySample, error) {
	if math.IsNaN(targetRangeM) || targetRangeM <= 0 {
		return 0, TrajectorySample{}, fmt.Errorf("%w: target range %v m", ErrNoSolution, targetRangeM)
	}

	apexDeg, maxDist := apex(p, o.step)
	if targetRangeM > maxDist+o.toleranceM {
		return 0, TrajectorySample{}, fmt.Errorf("%w: %.0f m exceeds maximum range %.0f m", ErrNoSolution, targetRangeM, maxDist)
	}

	lo, hi := 0.0, apexDeg
	loSample := rangeAt(p, lo, o.step)
	if math.Abs(loSample.Distance-targetRangeM) <= o.toleranceM {
		return lo, loSample, nil
	}
	if loSample.Distance > targetRangeM {
		return 0, TrajectorySample{}, fmt.Errorf("%w: %.0f m is inside the minimum range %.0f m", ErrNoSolution, targetRangeM, loSample.Distance)
	}

	for i := 0; i < o.maxIter; i++ {
		mid := (lo + hi) / 2
		sample := rangeAt(p, mid, o.step)
		miss := sample.Distance - targetRangeM
		if math.Abs(miss) <= o.toleranceM {
			return mid, sample, nil
		}
		if miss < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, TrajectorySample{}, fmt.Errorf("%w: no convergence on %.0f m within %d iterations", ErrNoSolution, targetRangeM, o.maxIter)
}
