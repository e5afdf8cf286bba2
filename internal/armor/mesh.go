// Package armor traces shells through a ship's triangulated armor mesh and
// scores the damage of the hit. It complements the flat-plate classifier in
// pkg/gunnery: gunnery answers "does this shell beat this much steel", armor
// answers "what does it wreck inside this hull".
package armor

import (
	"math"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// PlateKind classifies a mesh face by what it protects.
type PlateKind uint8

const (
	Structure PlateKind = iota
	Citadel
	TorpedoBulkhead
)

func (k PlateKind) String() string {
	switch k {
	case Structure:
		return "structure"
	case Citadel:
		return "citadel"
	case TorpedoBulkhead:
		return "torpedo bulkhead"
	}
	return "unknown"
}

// KindFromMaterialID maps the game's armor material ids onto plate kinds.
// Ids 59 through 67 wrap the citadel spaces, 101 is the torpedo bulkhead.
func KindFromMaterialID(id int) PlateKind {
	switch {
	case id >= 59 && id <= 67:
		return Citadel
	case id == 101:
		return TorpedoBulkhead
	}
	return Structure
}

// Vec3 is a point or direction in the ship's model space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Face is one triangle of the armor mesh.
type Face struct {
	A, B, C     Vec3
	ThicknessMM float64
	Kind        PlateKind
}

// Normal returns the unit normal of the face plane. Winding order decides
// its sign; intersection folds angles so the sign never matters.
func (f Face) Normal() Vec3 {
	return f.B.Sub(f.A).Cross(f.C.Sub(f.A)).Normalize()
}

// Reflect bounces an incident direction off the face plane and returns the
// continuing unit direction of the deflected shell.
func (f Face) Reflect(dir Vec3) Vec3 {
	n := f.Normal()
	if dir.Dot(n) > 0 {
		n = n.Scale(-1)
	}
	return dir.Sub(n.Scale(2 * dir.Dot(n))).Normalize()
}

// Hit is one ray-face intersection.
type Hit struct {
	// T is the ray parameter of the intersection point.
	T float64
	// AngleDeg is the impact angle from the face normal: 0 perpendicular,
	// 90 grazing.
	AngleDeg float64
	Point    Vec3
}

const rayEpsilon = 1e-5

// Intersect runs the Moeller-Trumbore test for a ray against the face and
// reports the hit with its obliquity.
func (f Face) Intersect(origin, dir Vec3) (Hit, bool) {
	edge1 := f.B.Sub(f.A)
	edge2 := f.C.Sub(f.A)
	h := dir.Cross(edge2)
	a := edge1.Dot(h)
	if math.Abs(a) < rayEpsilon {
		// Ray parallel to the face plane.
		return Hit{}, false
	}

	inv := 1 / a
	s := origin.Sub(f.A)
	u := inv * s.Dot(h)
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	q := s.Cross(edge1)
	v := inv * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := inv * edge2.Dot(q)

	cos := f.Normal().Dot(dir) / dir.Length()
	angle := 180 / math.Pi * math.Acos(math.Max(-1, math.Min(1, cos)))
	if angle > 90 {
		angle = 180 - angle
	}
	return Hit{
		T:        t,
		AngleDeg: angle,
		Point:    origin.Add(dir.Scale(t)),
	}, true
}

// Mesh is a ship's full armor model.
type Mesh struct {
	Faces []Face
}

// FromPlates converts parsed armor plates into a traceable mesh.
func FromPlates(plates []fleet.ArmorPlate) Mesh {
	faces := make([]Face, 0, len(plates))
	for _, p := range plates {
		faces = append(faces, Face{
			A:           Vec3{p.Vertices[0][0], p.Vertices[0][1], p.Vertices[0][2]},
			B:           Vec3{p.Vertices[1][0], p.Vertices[1][1], p.Vertices[1][2]},
			C:           Vec3{p.Vertices[2][0], p.Vertices[2][1], p.Vertices[2][2]},
			ThicknessMM: p.ThicknessMM,
			Kind:        KindFromMaterialID(p.MaterialID),
		})
	}
	return Mesh{Faces: faces}
}

func (m Mesh) Empty() bool { return len(m.Faces) == 0 }

// Size returns the bounding-box extents of the mesh along each axis.
func (m Mesh) Size() (x, y, z float64) {
	if m.Empty() {
		return 0, 0, 0
	}
	min, max := m.bounds()
	return max.X - min.X, max.Y - min.Y, max.Z - min.Z
}

// Center returns the midpoint of the mesh bounding box. Attack rays aim
// here before any dispersion offset shifts them.
func (m Mesh) Center() Vec3 {
	if m.Empty() {
		return Vec3{}
	}
	min, max := m.bounds()
	return min.Add(max).Scale(0.5)
}

func (m Mesh) bounds() (min, max Vec3) {
	min = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, f := range m.Faces {
		for _, v := range [3]Vec3{f.A, f.B, f.C} {
			min.X = math.Min(min.X, v.X)
			min.Y = math.Min(min.Y, v.Y)
			min.Z = math.Min(min.Z, v.Z)
			max.X = math.Max(max.X, v.X)
			max.Y = math.Max(max.Y, v.Y)
			max.Z = math.Max(max.Z, v.Z)
		}
	}
	return min, max
}

// Box builds the twelve triangles of an axis-aligned box centered on the
// origin. Test targets and the synthetic demo hull are boxes; real hulls
// come out of the armor scheme parser.
func Box(lengthZ, beamX, heightY, thicknessMM float64, kind PlateKind) []Face {
	hx, hy, hz := beamX/2, heightY/2, lengthZ/2
	corner := func(ix, iy, iz int) Vec3 {
		return Vec3{hx * float64(ix), hy * float64(iy), hz * float64(iz)}
	}
	quad := func(a, b, c, d Vec3) []Face {
		return []Face{
			{A: a, B: b, C: c, ThicknessMM: thicknessMM, Kind: kind},
			{A: a, B: c, C: d, ThicknessMM: thicknessMM, Kind: kind},
		}
	}

	var faces []Face
	// port and starboard
	faces = append(faces, quad(corner(-1, -1, -1), corner(-1, -1, 1), corner(-1, 1, 1), corner(-1, 1, -1))...)
	faces = append(faces, quad(corner(1, -1, -1), corner(1, -1, 1), corner(1, 1, 1), corner(1, 1, -1))...)
	// deck and bottom
	faces = append(faces, quad(corner(-1, 1, -1), corner(-1, 1, 1), corner(1, 1, 1), corner(1, 1, -1))...)
	faces = append(faces, quad(corner(-1, -1, -1), corner(-1, -1, 1), corner(1, -1, 1), corner(1, -1, -1))...)
	// bow and stern
	faces = append(faces, quad(corner(-1, -1, 1), corner(1, -1, 1), corner(1, 1, 1), corner(-1, 1, 1))...)
	faces = append(faces, quad(corner(-1, -1, -1), corner(1, -1, -1), corner(1, 1, -1), corner(-1, 1, -1))...)
	return faces
}
