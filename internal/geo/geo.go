// Package geo projects solver output onto a map plane.
//
// Everything is produced in EPSG:3857, where coordinates are meters on the
// web-mercator plane, because the storage layer has no spatial awareness and
// needs plain numbers it can round-trip through strings.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Coords3857From4326 creates a map point from a longitude and latitude.
func Coords3857From4326(longitude, latitude float64) (geom.Point, error) {
	if longitude < -180 || longitude > 180 || latitude < -90 || latitude > 90 {
		return geom.Point{}, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	}), nil
}

// FallOfShot offsets a firing position by a solved range along a bearing.
// Bearings are compass degrees: 0 north, 90 east.
func FallOfShot(origin geom.Point, bearingDeg, rangeM float64) (geom.Point, error) {
	coords, ok := origin.Coordinates()
	if !ok {
		return geom.Point{}, ErrInvalidCoordinates
	}
	b := radians(bearingDeg)
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{
			X: coords.X + rangeM*math.Sin(b),
			Y: coords.Y + rangeM*math.Cos(b),
		},
	}), nil
}

// TrajectoryTrack converts integrator samples into a measured line string
// along a bearing: X/Y on the map plane, Z the height above the gun line and
// M the seconds since firing.
func TrajectoryTrack(origin geom.Point, bearingDeg float64, samples []gunnery.TrajectorySample) (geom.LineString, error) {
	if len(samples) < 2 {
		return geom.LineString{}, fmt.Errorf("trajectory must have at least 2 samples, got %d", len(samples))
	}
	coords, ok := origin.Coordinates()
	if !ok {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	b := radians(bearingDeg)
	sin, cos := math.Sin(b), math.Cos(b)

	flat := make([]float64, 0, len(samples)*4)
	for _, s := range samples {
		flat = append(flat,
			coords.X+s.Distance*sin,
			coords.Y+s.Distance*cos,
			s.Height,
			s.Time,
		)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZM)), nil
}

// DispersionEllipse traces the fall-of-shot ellipse around an impact point
// as a closed ring. The vertical axis lies along the bearing, the
// horizontal axis across it.
func DispersionEllipse(center geom.Point, bearingDeg, horizontalM, verticalM float64, segments int) (geom.LineString, error) {
	if segments < 3 {
		segments = 32
	}
	coords, ok := center.Coordinates()
	if !ok {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	b := radians(bearingDeg)
	sin, cos := math.Sin(b), math.Cos(b)

	flat := make([]float64, 0, (segments+1)*2)
	for i := 0; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i%segments) / float64(segments)
		across := horizontalM * math.Cos(theta)
		along := verticalM * math.Sin(theta)
		flat = append(flat,
			coords.X+across*cos+along*sin,
			coords.Y-across*sin+along*cos,
		)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
