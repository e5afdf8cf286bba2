package gunnery

import "math"

// Standard-atmosphere constants for the drag model.
const (
	gravity          = 9.81      // m/s^2
	seaLevelTempK    = 288.0     // K
	tempLapseKPerM   = 0.0065    // K/m
	seaLevelPressure = 101325.0  // Pa
	molarMassAir     = 0.0289644 // kg/mol
	gasConstant      = 8.31447   // J/(mol*K)
)

// AirDensity returns the dry-air density in kg/m^3 at a height above the gun
// line, from the barometric formula with a linear temperature lapse. Humidity
// and wind are ignored; heights below the gun line extrapolate the same
// curve.
func AirDensity(heightM float64) float64 {
	temp := seaLevelTempK - tempLapseKPerM*heightM
	pressure := seaLevelPressure * math.Pow(temp/seaLevelTempK, gravity*molarMassAir/(gasConstant*tempLapseKPerM))
	return pressure * molarMassAir / (gasConstant * temp)
}
