package parser

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shellfall/engine/v2/internal/util"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// modelToMeters scales armor model units to meters, calibrated against
// known hull lengths.
const modelToMeters = 1.53

// rawGeometry mirrors one armor model file.
type rawGeometry struct {
	Objects struct {
		Armor struct {
			Vertices []float64 `json:"vertices"`
			Groups   []struct {
				Material string `json:"material"`
				Indices  []int  `json:"indices"`
			} `json:"groups"`
		} `json:"armor"`
	} `json:"objects"`
	Materials map[string]struct {
		Type      int `json:"type"`
		Thickness int `json:"thickness"` // mm
	} `json:"materials"`
}

// ParseArmorScheme parses the armor view page into model references. Each
// scheme part names a model file and the transform that places it in hull
// space.
func (p *Parser) ParseArmorScheme(page string) ([]ArmorModelRef, error) {
	schemeText, err := util.ExtractJSVar(page, "scheme")
	if err != nil {
		return nil, fmt.Errorf("error locating armor scheme: %w", err)
	}

	scheme := map[string]any{}
	if err := json.Unmarshal([]byte(schemeText), &scheme); err != nil {
		return nil, fmt.Errorf("error unmarshalling armor scheme: %w", err)
	}

	refs := make([]ArmorModelRef, 0, len(scheme))
	for _, key := range sortedKeys(scheme) {
		part, err := objField(scheme, key)
		if err != nil {
			return nil, err
		}
		model, err := strField(part, "model")
		if err != nil {
			return nil, fmt.Errorf("scheme part %s: %w", key, err)
		}
		cols, err := arrField(part, "transform")
		if err != nil {
			return nil, fmt.Errorf("scheme part %s: %w", key, err)
		}
		if len(cols) != 4 {
			return nil, fmt.Errorf("scheme part %s: transform has %d columns", key, len(cols))
		}

		var ref ArmorModelRef
		ref.Model = model
		for i, colRaw := range cols {
			col, ok := colRaw.([]any)
			if !ok || len(col) != 4 {
				return nil, fmt.Errorf("scheme part %s: column %d is not a 4-vector", key, i)
			}
			for j, e := range col {
				f, ok := e.(float64)
				if !ok {
					return nil, fmt.Errorf("couldn't get %dth element of column %d", j, i)
				}
				ref.Transform[i][j] = f
			}
		}
		refs = append(refs, ref)
	}

	p.logger.Debug("Parsed armor scheme", "models", len(refs))
	return refs, nil
}

// ParseArmorModel parses one model file and places its faces with the
// scheme transform. Groups reference shared vertices by index; material
// lookup supplies thickness and the raw scheme type.
func (p *Parser) ParseArmorModel(model string, transform [4][4]float64) ([]fleet.ArmorPlate, error) {
	var geom rawGeometry
	if err := json.Unmarshal([]byte(model), &geom); err != nil {
		return nil, fmt.Errorf("error unmarshalling armor model: %w", err)
	}

	raw := geom.Objects.Armor.Vertices
	if len(raw)%3 != 0 {
		return nil, fmt.Errorf("vertex array length %d is not a multiple of 3", len(raw))
	}
	points := make([][3]float64, len(raw)/3)
	for i := range points {
		points[i] = applyTransform(transform, raw[i*3], raw[i*3+1], raw[i*3+2])
	}

	var plates []fleet.ArmorPlate
	for _, group := range geom.Objects.Armor.Groups {
		material, ok := geom.Materials[group.Material]
		if !ok {
			return nil, fmt.Errorf("group references unknown material %q", group.Material)
		}
		if len(group.Indices)%3 != 0 {
			return nil, fmt.Errorf("group %q index count %d is not a multiple of 3", group.Material, len(group.Indices))
		}
		for i := 0; i < len(group.Indices)/3; i++ {
			var tri [3][3]float64
			for c := 0; c < 3; c++ {
				idx := group.Indices[i*3+c]
				if idx < 0 || idx >= len(points) {
					return nil, fmt.Errorf("group %q vertex index %d out of range", group.Material, idx)
				}
				tri[c] = points[idx]
			}
			plates = append(plates, fleet.ArmorPlate{
				Vertices:    tri,
				ThicknessMM: float64(material.Thickness),
				MaterialID:  material.Type,
			})
		}
	}

	p.logger.Debug("Parsed armor model", "faces", len(plates))
	return plates, nil
}

// applyTransform applies a column-major homogeneous transform to a point.
func applyTransform(t [4][4]float64, x, y, z float64) [3]float64 {
	w := t[0][3]*x + t[1][3]*y + t[2][3]*z + t[3][3]
	return [3]float64{
		(t[0][0]*x + t[1][0]*y + t[2][0]*z + t[3][0]) / w,
		(t[0][1]*x + t[1][1]*y + t[2][1]*z + t[3][1]) / w,
		(t[0][2]*x + t[1][2]*y + t[2][2]*z + t[3][2]) / w,
	}
}

// IdentityTransform places a model without moving it.
func IdentityTransform() [4][4]float64 {
	var t [4][4]float64
	for i := 0; i < 4; i++ {
		t[i][i] = 1
	}
	return t
}

// HullLength estimates the waterline length from the armor mesh: the z
// extent of the bounding box scaled to meters.
func HullLength(plates []fleet.ArmorPlate) float64 {
	if len(plates) == 0 {
		return 0
	}
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, plate := range plates {
		for _, v := range plate.Vertices {
			minZ = math.Min(minZ, v[2])
			maxZ = math.Max(maxZ, v[2])
		}
	}
	return (maxZ - minZ) * modelToMeters
}
