package gunnery

import (
	"math"
	"math/rand"
)

// Dispersion models the single-shot fall-of-shot ellipse of a gun battery.
// The horizontal and vertical extents come straight from the game's
// artillery parameters and scale linearly with range over the gun's maximum
// range.
type Dispersion struct {
	HorizontalM float64 // cross-range half-extent at MaxRangeM
	VerticalM   float64 // down-range half-extent at MaxRangeM
	MaxRangeM   float64
	Sigma       float64 // sigma of the bounded gaussian draw
}

// Offset is a ground-plane displacement of the aim point.
type Offset struct {
	X float64
	Z float64
}

// Sample draws one impact offset around the aim point. The gaussian is
// redrawn until it lands inside (-0.5, 0.5), so a shot never leaves the
// ellipse; rng is caller-supplied to keep sweeps reproducible.
func (d Dispersion) Sample(rng *rand.Rand, azimuthDeg, rangeM float64) Offset {
	if d.MaxRangeM <= 0 {
		return Offset{}
	}
	f := rangeM / d.MaxRangeM
	x := d.HorizontalM * boundedGauss(rng, d.Sigma) * f
	y := d.VerticalM * boundedGauss(rng, d.Sigma) * f
	az := radians(azimuthDeg)
	return Offset{
		X: x*math.Cos(az) - y*math.Sin(az),
		Z: x*math.Sin(az) + y*math.Cos(az),
	}
}

func boundedGauss(rng *rand.Rand, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	for {
		v := rng.NormFloat64() * sigma
		if v > -0.5 && v < 0.5 {
			return v
		}
	}
}
