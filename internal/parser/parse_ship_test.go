package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// yamatoPage is a trimmed vehicle page: one hull, one turret, two shells.
const yamatoPage = `<!DOCTYPE html>
<html>
<head><title>Yamato</title></head>
<body>
<script>
var _vehicleTypes = ["ship"];
var _vehicle = {
  "name": "Yamato",
  "class": "battleship",
  "level": 10,
  "Components": {
    "AB1_Artillery": {
      "minDistH": 210.0,
      "minDistV": 140.0,
      "maxDist": 26630.0,
      "sigmaCount": 2.1,
      "guns": {
        "HP_AGM_1": {
          "ammoList": {
            "PJGP460AP": {
              "ammoType": "AP",
              "bulletMass": 1460.0,
              "bulletDiametr": 0.46,
              "bulletSpeed": 780.0,
              "bulletAirDrag": 0.292,
              "bulletKrupp": 2574.0,
              "alphaDamage": 14800.0,
              "bulletDetonator": 0.033,
              "bulletDetonatorThreshold": 68.0
            },
            "PJGP460HE": {
              "ammoType": "HE",
              "bulletMass": 1360.0,
              "bulletDiametr": 0.46,
              "bulletSpeed": 780.0,
              "bulletAirDrag": 0.292,
              "bulletKrupp": 2574.0,
              "alphaDamage": 7300.0,
              "alphaPiercingHE": 77.0
            }
          }
        }
      }
    },
    "A_Hull": {
      "name": "Yamato (A)",
      "maxSpeed": 52.7
    }
  },
  "ShipUpgradeInfo": {
    "_Hull": {
      "PJUH701_Yamato_1943": {
        "components": {
          "artillery": ["AB1_Artillery"],
          "hull": ["A_Hull"]
        }
      }
    }
  }
};
var _camouflages = {};
</script>
</body>
</html>`

func TestParseShip_Battleship(t *testing.T) {
	p := newTestParser()

	parsed, err := p.ParseShip("PJSB018", yamatoPage)
	require.NoError(t, err)

	assert.Equal(t, "PJSB018", parsed.Ship.ID)
	assert.Equal(t, "Yamato", parsed.Ship.Name)
	assert.Equal(t, fleet.Battleship, parsed.Ship.Class)
	assert.Equal(t, 10, parsed.Ship.Tier)

	require.Len(t, parsed.Hulls, 1)
	hull := parsed.Hulls[0]
	assert.Equal(t, "Yamato (A)", hull.Hull.Name)
	assert.InDelta(t, 52.7/1.944, hull.Hull.SpeedMS, 1e-9)

	require.Len(t, hull.Hull.Battery, 1)
	battery := hull.Hull.Battery[0]
	assert.Equal(t, 210.0, battery.Dispersion.HorizontalM)
	assert.Equal(t, 140.0, battery.Dispersion.VerticalM)
	assert.Equal(t, 26630.0, battery.Dispersion.MaxRangeM)
	assert.Equal(t, 2.1, battery.Dispersion.Sigma)

	require.Len(t, battery.Guns, 1)
	gun := battery.Guns[0]
	assert.Equal(t, "HP_AGM_1", gun.Name)
	require.Len(t, gun.Shells, 2)

	// Shells come out sorted by ammoList key
	ap := gun.Shells[0]
	assert.Equal(t, "PJGP460AP", ap.Name)
	assert.Equal(t, "AP", ap.AmmoType)
	assert.InDelta(t, 460.0, ap.CaliberMM, 1e-9)
	assert.Equal(t, 1460.0, ap.MassKG)
	assert.Equal(t, 780.0, ap.MuzzleVelocity)
	assert.Equal(t, 0.292, ap.DragCoefficient)
	assert.Equal(t, 2574.0, ap.Krupp)
	assert.Equal(t, 14800.0, ap.AlphaDamage)
	assert.Equal(t, 0.033, ap.DetonatorS)
	assert.Equal(t, 68.0, ap.DetonatorThresholdMM)

	he := gun.Shells[1]
	assert.Equal(t, "HE", he.AmmoType)
	assert.Equal(t, 7300.0, he.AlphaDamage)
	assert.Equal(t, 77.0, he.HEPiercingMM)
	assert.Zero(t, he.DetonatorS)

	// Armor view params take the first option of every component slot
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(hull.ArmorParams), &params))
	assert.Equal(t, "A_Hull", params["hull"])
	assert.Equal(t, "AB1_Artillery", params["artillery"])
}

func TestParseShip_Assemble(t *testing.T) {
	p := newTestParser()

	parsed, err := p.ParseShip("PJSB018", yamatoPage)
	require.NoError(t, err)

	parsed.Hulls[0].Hull.Plates = []fleet.ArmorPlate{{ThicknessMM: 410}}
	parsed.Hulls[0].Hull.LengthM = 263.0

	ship := parsed.Assemble()
	require.Len(t, ship.Hulls, 1)
	assert.Equal(t, 263.0, ship.Hulls[0].LengthM)
	assert.Len(t, ship.Hulls[0].Plates, 1)
}

func TestParseShip_SkipsSubmarines(t *testing.T) {
	p := newTestParser()

	page := `<script>var _vehicle = {"name": "U-69", "class": "submarine", "level": 6};</script>`
	_, err := p.ParseShip("PGSS506", page)
	require.Error(t, err)
	assert.ErrorIs(t, err, fleet.ErrUnsupportedClass)
}

func TestParseShip_CarrierHasNoArtillery(t *testing.T) {
	p := newTestParser()

	page := `<script>
var _vehicle = {
  "name": "Hosho",
  "class": "aircarrier",
  "level": 4,
  "Components": {
    "CV_Hull_A": {"name": "Hosho (A)", "maxSpeed": 25.0}
  },
  "ShipUpgradeInfo": {
    "_Hull": {
      "PJUH401": {"components": {"flightControl": ["FC_A"], "hull": ["CV_Hull_A"]}}
    }
  }
};
</script>`

	parsed, err := p.ParseShip("PJSA001", page)
	require.NoError(t, err)

	require.Len(t, parsed.Hulls, 1)
	assert.Empty(t, parsed.Hulls[0].Hull.Battery)

	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(parsed.Hulls[0].ArmorParams), &params))
	assert.Equal(t, "CV_Hull_A", params["hull"])
	assert.Equal(t, "FC_A", params["flightControl"])
}

func TestParseShip_MissingVehicleVar(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseShip("PJSB018", "<html><body>maintenance page</body></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle spec")
}

func TestParseAmmo_SemiAP(t *testing.T) {
	p := newTestParser()

	shell, err := p.parseAmmo("PIGP203CS", map[string]any{
		"ammoType":      "CS",
		"bulletMass":    118.0,
		"bulletDiametr": 0.203,
		"bulletSpeed":   900.0,
		"bulletAirDrag": 0.33,
		"bulletKrupp":   2100.0,
		"alphaDamage":   4600.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "CS", shell.AmmoType)
	assert.InDelta(t, 203.0, shell.CaliberMM, 1e-9)
	assert.Equal(t, 4600.0, shell.AlphaDamage)
	assert.Zero(t, shell.DetonatorS)
	assert.Zero(t, shell.DetonatorThresholdMM)
}

func TestParseAmmo_UnknownType(t *testing.T) {
	p := newTestParser()

	_, err := p.parseAmmo("X", map[string]any{
		"ammoType":      "XYZ",
		"bulletMass":    100.0,
		"bulletDiametr": 0.1,
		"bulletSpeed":   800.0,
		"bulletAirDrag": 0.3,
		"bulletKrupp":   2400.0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ammo type")
}
