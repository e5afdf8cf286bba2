package geo

import (
	"errors"
	"math"
	"strings"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/shellfall/engine/v2/pkg/gunnery"
)

func point(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

func TestCoords3857From4326_Origin(t *testing.T) {
	p, err := Coords3857From4326(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if math.Abs(coords.X) > 1e-6 || math.Abs(coords.Y) > 1e-6 {
		t.Errorf("expected origin to map to (0,0), got (%f,%f)", coords.X, coords.Y)
	}
}

func TestCoords3857From4326_Equator(t *testing.T) {
	p, err := Coords3857From4326(1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, _ := p.Coordinates()
	// One degree of longitude at the equator is about 111.32 km
	if math.Abs(coords.X-111319.49079327358) > 0.01 {
		t.Errorf("expected X about 111319.49, got %f", coords.X)
	}
	if math.Abs(coords.Y) > 1e-6 {
		t.Errorf("expected Y=0 on the equator, got %f", coords.Y)
	}
}

func TestCoords3857From4326_OutOfRange(t *testing.T) {
	if _, err := Coords3857From4326(0, 95); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for lat 95, got %v", err)
	}
	if _, err := Coords3857From4326(181, 0); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for lon 181, got %v", err)
	}
}

func TestFallOfShot_CardinalBearings(t *testing.T) {
	tests := []struct {
		name    string
		bearing float64
		wantX   float64
		wantY   float64
	}{
		{"north", 0, 0, 1000},
		{"east", 90, 1000, 0},
		{"south", 180, 0, -1000},
		{"west", 270, -1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FallOfShot(point(0, 0), tt.bearing, 1000)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			coords, _ := p.Coordinates()
			if math.Abs(coords.X-tt.wantX) > 1e-9 {
				t.Errorf("expected X=%f, got %f", tt.wantX, coords.X)
			}
			if math.Abs(coords.Y-tt.wantY) > 1e-9 {
				t.Errorf("expected Y=%f, got %f", tt.wantY, coords.Y)
			}
		})
	}
}

func TestFallOfShot_EmptyOrigin(t *testing.T) {
	_, err := FallOfShot(geom.NewEmptyPoint(geom.DimXY), 0, 1000)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestTrajectoryTrack(t *testing.T) {
	samples := []gunnery.TrajectorySample{
		{Time: 0, Distance: 0, Height: 0},
		{Time: 2.5, Distance: 100, Height: 50},
		{Time: 5, Distance: 200, Height: 0},
	}

	ls, err := TrajectoryTrack(point(500, 500), 90, samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seq := ls.Coordinates()
	if seq.Length() != 3 {
		t.Fatalf("expected 3 vertices, got %d", seq.Length())
	}
	if seq.CoordinatesType() != geom.DimXYZM {
		t.Fatalf("expected XYZM sequence, got %v", seq.CoordinatesType())
	}

	mid := seq.Get(1)
	if math.Abs(mid.X-600) > 1e-9 {
		t.Errorf("expected mid X=600, got %f", mid.X)
	}
	if math.Abs(mid.Y-500) > 1e-9 {
		t.Errorf("expected mid Y=500, got %f", mid.Y)
	}
	if math.Abs(mid.Z-50) > 1e-9 {
		t.Errorf("expected mid Z=50, got %f", mid.Z)
	}
	if math.Abs(mid.M-2.5) > 1e-9 {
		t.Errorf("expected mid M=2.5, got %f", mid.M)
	}

	if !strings.HasPrefix(ls.AsText(), "LINESTRING") {
		t.Errorf("expected WKT line string, got %s", ls.AsText())
	}
}

func TestTrajectoryTrack_TooFewSamples(t *testing.T) {
	_, err := TrajectoryTrack(point(0, 0), 0, []gunnery.TrajectorySample{{}})
	if err == nil {
		t.Error("expected error for single-sample trajectory")
	}
}

func TestDispersionEllipse(t *testing.T) {
	ls, err := DispersionEllipse(point(0, 0), 0, 200, 100, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seq := ls.Coordinates()
	if seq.Length() != 5 {
		t.Fatalf("expected 5 vertices for a closed 4-segment ring, got %d", seq.Length())
	}

	want := [][2]float64{
		{200, 0},
		{0, 100},
		{-200, 0},
		{0, -100},
		{200, 0},
	}
	for i, w := range want {
		xy := seq.GetXY(i)
		if math.Abs(xy.X-w[0]) > 1e-9 || math.Abs(xy.Y-w[1]) > 1e-9 {
			t.Errorf("vertex %d: expected (%f,%f), got (%f,%f)", i, w[0], w[1], xy.X, xy.Y)
		}
	}
}

func TestDispersionEllipse_RotatedWithBearing(t *testing.T) {
	// Firing due east: the long axis of dispersion turns with the shot line
	ls, err := DispersionEllipse(point(0, 0), 90, 200, 100, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seq := ls.Coordinates()
	first := seq.GetXY(0)
	// across-track offset now points south
	if math.Abs(first.X) > 1e-9 {
		t.Errorf("expected X=0, got %f", first.X)
	}
	if math.Abs(first.Y+200) > 1e-9 {
		t.Errorf("expected Y=-200, got %f", first.Y)
	}
}
