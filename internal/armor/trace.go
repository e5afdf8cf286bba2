package armor

import (
	"math"

	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// ImpactKind classifies what a traced shell did to the hull.
type ImpactKind uint8

const (
	Miss ImpactKind = iota
	NonPenetration
	Penetration
	CitadelHit
	TorpedoProtection
	Ricochet
	OverPenetration
)

func (k ImpactKind) String() string {
	switch k {
	case Miss:
		return "miss"
	case NonPenetration:
		return "non-penetration"
	case Penetration:
		return "penetration"
	case CitadelHit:
		return "citadel"
	case TorpedoProtection:
		return "torpedo protection"
	case Ricochet:
		return "ricochet"
	case OverPenetration:
		return "over-penetration"
	}
	return "unknown"
}

// Shot is one shell arriving at the hull.
type Shot struct {
	// PenetrationMM is the nominal penetration the shell brings to the
	// first plate, from the gunnery formula at impact velocity.
	PenetrationMM float64
	// SpeedMS scales the fuze travel budget once the detonator arms.
	SpeedMS float64
	// Direction is the descent direction at impact.
	Direction Vec3
	// AimPoint is where the undispersed trajectory meets the hull's model
	// space; dispersion offsets are applied by the caller.
	AimPoint Vec3
}

// Result is the verdict of one traced shell.
type Result struct {
	Kind      ImpactKind
	Damage    float64
	PlatesHit int
}

// Trace dispatches a shell onto the branch its ammo type uses. AP and SAP
// shells burrow with a fuze; HE bursts on the first plate.
func Trace(mesh Mesh, shell fleet.Shell, cal gunnery.Calibration, shot Shot) Result {
	st, err := gunnery.ParseShellType(shell.AmmoType)
	if err != nil {
		st = gunnery.AP
	}
	if st == gunnery.HE {
		return TraceHE(mesh, shell, shot)
	}
	return TraceAP(mesh, shell, cal.ForType(st), shot)
}

// TraceHE bursts a high-explosive shell on the first plate it meets. The
// burst either fails on thick plating or deals a third of alpha, full
// fraction against nothing vital, same fraction with a citadel tag when the
// first plate wraps the vitals.
func TraceHE(mesh Mesh, shell fleet.Shell, shot Shot) Result {
	p := newPath(mesh, shot)
	face, _, ok := p.next()
	if !ok {
		return Result{Kind: Miss}
	}
	if face.ThicknessMM > shell.HEPiercingMM {
		return Result{Kind: NonPenetration, PlatesHit: 1}
	}
	if face.Kind == Citadel {
		return Result{Kind: CitadelHit, Damage: shell.AlphaDamage / 3, PlatesHit: 1}
	}
	return Result{Kind: Penetration, Damage: shell.AlphaDamage / 3, PlatesHit: 1}
}

// TraceAP walks an armor-piercing shell through the mesh plate by plate.
// Each plate either deflects the shell, absorbs the rest of its penetration,
// or is holed; a plate thick enough to arm the detonator starts the fuze
// travel budget, and crossing the citadel boundary an odd number of times
// means the burst happens inside the vitals.
func TraceAP(mesh Mesh, shell fleet.Shell, entry gunnery.ShellCalibration, shot Shot) Result {
	p := newPath(mesh, shot)
	face, hit, ok := p.next()
	if !ok {
		return Result{Kind: Miss}
	}

	pen := shot.PenetrationMM
	citadelCrossings := 0
	fuseM := math.Inf(1) // unarmed
	var lastPoint Vec3
	entered := false
	plates := 0

	detonate := func(face Face) Result {
		if citadelCrossings%2 == 1 {
			return Result{Kind: CitadelHit, Damage: shell.AlphaDamage, PlatesHit: plates}
		}
		if face.Kind == TorpedoBulkhead {
			return Result{Kind: TorpedoProtection, PlatesHit: plates}
		}
		return Result{Kind: Penetration, Damage: shell.AlphaDamage / 3, PlatesHit: plates}
	}

	for {
		plates++
		if face.Kind == Citadel {
			citadelCrossings++
		}

		// Fuze travel is measured plate to plate, so the reference point
		// is captured before the ray advances.
		if entered && !math.IsInf(fuseM, 1) {
			fuseM -= hit.Point.Sub(lastPoint).Length()
			if fuseM < 0 {
				return detonate(face)
			}
		}
		lastPoint = hit.Point

		overmatched := entry.OvermatchRatio > 0 && face.ThicknessMM < shell.CaliberMM/entry.OvermatchRatio
		if !overmatched && hit.AngleDeg > entry.RicochetDeg {
			face, hit, ok = p.ricochet()
			if !ok {
				return Result{Kind: Ricochet, PlatesHit: plates}
			}
		} else {
			los := lineOfSightThickness(face.ThicknessMM, hit.AngleDeg, entry.NormalizationDeg)
			pen -= los
			if pen < 0 {
				if !entered {
					return Result{Kind: NonPenetration, PlatesHit: plates}
				}
				return detonate(face)
			}
			if los > shell.DetonatorThresholdMM {
				fuseM = shot.SpeedMS * shell.DetonatorS
			}
			face, hit, ok = p.penetrate()
			if !ok {
				return Result{Kind: OverPenetration, Damage: shell.AlphaDamage / 10, PlatesHit: plates}
			}
		}
		entered = true
	}
}

// lineOfSightThickness stretches a plate to the path length the shell
// actually crosses. The normalization angle widens the effective obliquity
// the way the fuze-arming rule counts it; at grazing the plate is
// effectively bottomless.
func lineOfSightThickness(thicknessMM, angleFromNormalDeg, normalizationDeg float64) float64 {
	adj := angleFromNormalDeg + normalizationDeg
	if adj > 90 {
		adj = 90
	}
	return thicknessMM / math.Cos(adj*math.Pi/180)
}

// path walks a ray through the mesh, always taking the nearest face ahead.
type path struct {
	mesh      Mesh
	pos       Vec3
	dir       Vec3
	reflected Vec3
}

// newPath starts the ray well outside the hull so the first intersection is
// the outer plating whatever the aim point.
func newPath(mesh Mesh, shot Shot) *path {
	dir := shot.Direction.Normalize()
	return &path{
		mesh: mesh,
		pos:  shot.AimPoint.Sub(dir.Scale(1000)),
		dir:  dir,
	}
}

func (p *path) next() (Face, Hit, bool) {
	var (
		bestFace Face
		bestHit  Hit
		found    bool
	)
	for _, face := range p.mesh.Faces {
		hit, ok := face.Intersect(p.pos, p.dir)
		if !ok || hit.T <= rayEpsilon {
			continue
		}
		if !found || hit.T < bestHit.T {
			bestFace, bestHit, found = face, hit, true
		}
	}
	if !found {
		return Face{}, Hit{}, false
	}
	p.pos = bestHit.Point
	p.reflected = bestFace.Reflect(p.dir)
	return bestFace, bestHit, true
}

// ricochet continues the walk along the deflected direction.
func (p *path) ricochet() (Face, Hit, bool) {
	p.dir = p.reflected
	return p.next()
}

// penetrate continues the walk straight through the current face.
func (p *path) penetrate() (Face, Hit, bool) {
	return p.next()
}
