package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

const armorPage = `<html><body><script>
var sceneSettings = {"fov": 60};
var scheme = {
  "part2": {
    "model": "deadbeef02.json.gz",
    "transform": [[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]
  },
  "part1": {
    "model": "deadbeef01.json.gz",
    "transform": [[0,1,0,0],[-1,0,0,0],[0,0,1,0],[10,20,30,1]]
  }
};
</script></body></html>`

func TestParseArmorScheme(t *testing.T) {
	p := newTestParser()

	refs, err := p.ParseArmorScheme(armorPage)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	// Parts come out sorted by scheme key
	assert.Equal(t, "deadbeef01.json.gz", refs[0].Model)
	assert.Equal(t, [4]float64{0, 1, 0, 0}, refs[0].Transform[0])
	assert.Equal(t, [4]float64{10, 20, 30, 1}, refs[0].Transform[3])

	assert.Equal(t, "deadbeef02.json.gz", refs[1].Model)
	assert.Equal(t, IdentityTransform(), refs[1].Transform)
}

func TestParseArmorScheme_MissingVar(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseArmorScheme("<html><body>no scheme here</body></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "armor scheme")
}

func TestParseArmorScheme_BadTransform(t *testing.T) {
	p := newTestParser()

	page := `<script>var scheme = {"p": {"model": "m.json.gz", "transform": [[1,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]}};</script>`
	_, err := p.ParseArmorScheme(page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4-vector")
}

const citadelModel = `{
  "objects": {"armor": {
    "vertices": [0,0,0, 1,0,0, 0,1,0, 0,0,1],
    "groups": [
      {"material": "1", "indices": [0,1,2]},
      {"material": "2", "indices": [0,1,3, 1,2,3]}
    ]
  }},
  "materials": {
    "1": {"type": 59, "thickness": 410},
    "2": {"type": 0, "thickness": 32}
  }
}`

func TestParseArmorModel_Identity(t *testing.T) {
	p := newTestParser()

	plates, err := p.ParseArmorModel(citadelModel, IdentityTransform())
	require.NoError(t, err)
	require.Len(t, plates, 3)

	assert.Equal(t, 410.0, plates[0].ThicknessMM)
	assert.Equal(t, 59, plates[0].MaterialID)
	assert.Equal(t, [3]float64{0, 0, 0}, plates[0].Vertices[0])
	assert.Equal(t, [3]float64{1, 0, 0}, plates[0].Vertices[1])
	assert.Equal(t, [3]float64{0, 1, 0}, plates[0].Vertices[2])

	assert.Equal(t, 32.0, plates[1].ThicknessMM)
	assert.Equal(t, 0, plates[1].MaterialID)
	assert.Equal(t, [3]float64{0, 0, 1}, plates[1].Vertices[2])
}

func TestParseArmorModel_AppliesTransform(t *testing.T) {
	p := newTestParser()

	// Scale x by 2, then translate by (10, 20, 30)
	tr := IdentityTransform()
	tr[0][0] = 2
	tr[3] = [4]float64{10, 20, 30, 1}

	plates, err := p.ParseArmorModel(citadelModel, tr)
	require.NoError(t, err)

	assert.Equal(t, [3]float64{10, 20, 30}, plates[0].Vertices[0])
	assert.Equal(t, [3]float64{12, 20, 30}, plates[0].Vertices[1])
	assert.Equal(t, [3]float64{10, 21, 30}, plates[0].Vertices[2])
}

func TestParseArmorModel_UnknownMaterial(t *testing.T) {
	p := newTestParser()

	model := `{
  "objects": {"armor": {"vertices": [0,0,0, 1,0,0, 0,1,0], "groups": [{"material": "9", "indices": [0,1,2]}]}},
  "materials": {"1": {"type": 0, "thickness": 19}}
}`
	_, err := p.ParseArmorModel(model, IdentityTransform())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown material")
}

func TestParseArmorModel_BadVertexArray(t *testing.T) {
	p := newTestParser()

	model := `{"objects": {"armor": {"vertices": [0,0,0,1], "groups": []}}, "materials": {}}`
	_, err := p.ParseArmorModel(model, IdentityTransform())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 3")
}

func TestParseArmorModel_IndexOutOfRange(t *testing.T) {
	p := newTestParser()

	model := `{
  "objects": {"armor": {"vertices": [0,0,0, 1,0,0, 0,1,0], "groups": [{"material": "1", "indices": [0,1,7]}]}},
  "materials": {"1": {"type": 0, "thickness": 19}}
}`
	_, err := p.ParseArmorModel(model, IdentityTransform())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestHullLength(t *testing.T) {
	plates := []fleet.ArmorPlate{
		{Vertices: [3][3]float64{{0, 0, -50}, {1, 0, -50}, {0, 1, -50}}},
		{Vertices: [3][3]float64{{0, 0, 50}, {1, 0, 50}, {0, 1, 50}}},
	}
	assert.InDelta(t, 153.0, HullLength(plates), 1e-9)
}

func TestHullLength_Empty(t *testing.T) {
	assert.Zero(t, HullLength(nil))
}
