package gunnery

import "math"

// DefaultStep is the integrator step in seconds. Halving it moves the
// computed impact angle of a naval-gun trajectory by well under a tenth of a
// degree, so the default stays coarse.
const DefaultStep = 0.05

// maxFlightSeconds bounds a single forward integration. No reachable
// trajectory of a positive-mass shell stays aloft this long; the bound keeps
// degenerate profiles from spinning forever.
const maxFlightSeconds = 3600.0

// TrajectorySample is the integrator state after one step. Heights are
// relative to the gun line; a negative VelocityY means the shell is
// descending.
type TrajectorySample struct {
	Time      float64 // s since firing
	Distance  float64 // m downrange
	Height    float64 // m above the gun line
	VelocityX float64 // m/s horizontal
	VelocityY float64 // m/s vertical
}

// ImpactState is the terminal state of a solved trajectory.
type ImpactState struct {
	// Velocity is the speed at impact in m/s.
	Velocity float64
	// AngleDeg is measured from the surface normal of a vertical plate:
	// 0 is a flat, perpendicular hit, 90 a grazing one.
	AngleDeg float64
	// TimeOfFlight is the elapsed time from muzzle to impact in seconds.
	TimeOfFlight float64
	// VelocityX and VelocityY carry the terminal velocity components for
	// callers that trace the descent further, such as the armor model.
	VelocityX float64
	VelocityY float64
}

type options struct {
	step       float64
	toleranceM float64
	maxIter    int
}

func defaultOptions() options {
	return options{step: DefaultStep, toleranceM: 1.0, maxIter: 64}
}

// Option tunes the integrator and the elevation solver. The defaults are
// DefaultStep, a 1 m landing tolerance and a 64-iteration solver budget.
type Option func(*options)

// WithStep sets the integrator step in seconds. Non-positive values keep the
// default.
func WithStep(seconds float64) Option {
	return func(o *options) {
		if seconds > 0 {
			o.step = seconds
		}
	}
}

// WithTolerance sets the landing tolerance in meters for the elevation
// solver. Non-positive values keep the default.
func WithTolerance(meters float64) Option {
	return func(o *options) {
		if meters > 0 {
			o.toleranceM = meters
		}
	}
}

// WithMaxIterations bounds the elevation solver's bisection loop.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FlightPath integrates a full trajectory at a fixed barrel elevation and
// returns every sample, ending with the state interpolated onto the surface
// crossing (Height == 0).
func FlightPath(p BallisticProfile, elevationDeg float64, opts ...Option) ([]TrajectorySample, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	var samples []TrajectorySample
	term := fly(p, radians(elevationDeg), o.step, func(s TrajectorySample) {
		samples = append(samples, s)
	})
	return append(samples, term), nil
}

// fly forward-integrates the coupled position and velocity equations until
// the shell crosses the gun line, then interpolates the crossing. Position
// steps before velocity so the density lookup sees the new height, and the
// drag law combines a quadratic and a linear term in the speed.
func fly(p BallisticProfile, elevationRad, dt float64, keep func(TrajectorySample)) TrajectorySample {
	d := p.diameterM()
	cw1 := 1.0
	cw2 := 100.0 + 1000.0/3.0*d
	k := 0.5 * p.DragCoefficient * (d / 2) * (d / 2) * math.Pi / p.MassKG

	vx := p.MuzzleVelocity * math.Cos(elevationRad)
	vy := p.MuzzleVelocity * math.Sin(elevationRad)
	var x, y, t float64
	prev := TrajectorySample{VelocityX: vx, VelocityY: vy}
	for t < maxFlightSeconds {
		x += dt * vx
		y += dt * vy
		t += dt

		rho := AirDensity(y)
		vx -= dt * k * rho * (cw1*vx*vx + cw2*vx)
		// The quadratic term follows the sign of vy so drag opposes the
		// descent as well as the climb.
		vy -= dt*gravity + dt*k*rho*(cw1*math.Abs(vy)*vy+cw2*vy)

		cur := TrajectorySample{Time: t, Distance: x, Height: y, VelocityX: vx, VelocityY: vy}
		if y < 0 {
			return surfaceCrossing(prev, cur)
		}
		if keep != nil {
			keep(cur)
		}
		prev = cur
	}
	return prev
}

// surfaceCrossing blends the last airborne sample with the first submerged
// one so the terminal state sits exactly on the gun line.
func surfaceCrossing(above, below TrajectorySample) TrajectorySample {
	span := above.Height - below.Height
	if span <= 0 {
		return below
	}
	f := above.Height / span
	return TrajectorySample{
		Time:      lerp(above.Time, below.Time, f),
		Distance:  lerp(above.Distance, below.Distance, f),
		Height:    0,
		VelocityX: lerp(above.VelocityX, below.VelocityX, f),
		VelocityY: lerp(above.VelocityY, below.VelocityY, f),
	}
}

// impact converts a terminal sample into an ImpactState, clamping the angle
// into [0, 90].
func (s TrajectorySample) impact() ImpactState {
	angle := degrees(math.Atan2(-s.VelocityY, s.VelocityX))
	if angle < 0 {
		angle = 0
	}
	if angle > 90 {
		angle = 90
	}
	return ImpactState{
		Velocity:     math.Hypot(s.VelocityX, s.VelocityY),
		AngleDeg:     angle,
		TimeOfFlight: s.Time,
		VelocityX:    s.VelocityX,
		VelocityY:    s.VelocityY,
	}
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
