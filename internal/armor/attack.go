package armor

import (
	"errors"
	"math"

	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// AttackResult couples the armor verdict with the trajectory that produced
// it, so callers can report how the shell arrived as well as what it did.
type AttackResult struct {
	Result
	Impact gunnery.ImpactState
	// PenetrationMM is the nominal penetration the shell carried to the
	// first plate.
	PenetrationMM float64
	AimPoint      Vec3
}

// SimulateAttack fires one shell at a hull. The trajectory is integrated out
// to rangeM for the terminal state, the fall angle and the firing bearing
// form the descent ray, and the ray is traced through the mesh from the
// offset aim point. azimuthDeg is the bearing the fire arrives from,
// measured off the bow: 0 rakes the hull end on, 90 is a clean broadside.
// The offset displaces the aim point in the target's ground frame, matching
// what dispersion sampling hands out; a zero offset aims dead center.
func SimulateAttack(mesh Mesh, shell fleet.Shell, cal gunnery.Calibration, rangeM, azimuthDeg float64, offset gunnery.Offset, opts ...gunnery.Option) (AttackResult, error) {
	if mesh.Empty() {
		return AttackResult{}, errors.New("empty armor mesh")
	}

	profile := shell.Profile()
	impact, err := gunnery.Integrate(profile, rangeM, opts...)
	if err != nil {
		return AttackResult{}, err
	}

	aim := mesh.Center()
	aim.X += offset.X
	aim.Z += offset.Z

	shot := Shot{
		PenetrationMM: gunnery.NominalPenetration(profile, impact.Velocity, cal),
		SpeedMS:       impact.Velocity,
		Direction:     descentDirection(azimuthDeg, impact.AngleDeg),
		AimPoint:      aim,
	}
	return AttackResult{
		Result:        Trace(mesh, shell, cal, shot),
		Impact:        impact,
		PenetrationMM: shot.PenetrationMM,
		AimPoint:      aim,
	}, nil
}

// descentDirection builds the unit travel direction of a shell falling at
// fallDeg below the horizon and arriving from bearing azimuthDeg off the
// bow. The bow points along +Z and starboard along +X, so fire from
// azimuth 90 strikes the starboard side travelling in -X.
func descentDirection(azimuthDeg, fallDeg float64) Vec3 {
	az := azimuthDeg * math.Pi / 180
	fall := fallDeg * math.Pi / 180
	return Vec3{
		X: -math.Sin(az) * math.Cos(fall),
		Y: -math.Sin(fall),
		Z: -math.Cos(az) * math.Cos(fall),
	}
}
