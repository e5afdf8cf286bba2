package parser

import (
	"encoding/json"
	"fmt"

	"github.com/shellfall/engine/v2/internal/util"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// knotsPerMS converts the game's hull speed figure to m/s.
const knotsPerMS = 1.944

// ParseShip parses a vehicle page into a ship skeleton. Submarines and
// auxiliaries return fleet.ErrUnsupportedClass so callers can skip them.
func (p *Parser) ParseShip(vehicleID, page string) (ShipPage, error) {
	specText, err := util.ExtractJSVar(page, "_vehicle")
	if err != nil {
		return ShipPage{}, fmt.Errorf("error locating vehicle spec: %w", err)
	}

	spec := map[string]any{}
	if err := json.Unmarshal([]byte(specText), &spec); err != nil {
		return ShipPage{}, fmt.Errorf("error unmarshalling vehicle spec: %w", err)
	}

	name, err := strField(spec, "name")
	if err != nil {
		return ShipPage{}, err
	}
	classRaw, err := strField(spec, "class")
	if err != nil {
		return ShipPage{}, err
	}
	class, err := fleet.ParseShipClass(classRaw)
	if err != nil {
		return ShipPage{}, err
	}
	level, err := floatField(spec, "level")
	if err != nil {
		return ShipPage{}, err
	}

	components, err := objField(spec, "Components")
	if err != nil {
		return ShipPage{}, err
	}
	upgradeInfo, err := objField(spec, "ShipUpgradeInfo")
	if err != nil {
		return ShipPage{}, err
	}
	hulls, err := objField(upgradeInfo, "_Hull")
	if err != nil {
		return ShipPage{}, err
	}

	parsed := ShipPage{
		Ship: fleet.Ship{
			ID:    vehicleID,
			Name:  name,
			Class: class,
			Tier:  int(level),
		},
	}

	for _, key := range sortedKeys(hulls) {
		hullSpec, err := objField(hulls, key)
		if err != nil {
			return ShipPage{}, err
		}
		hull, err := p.parseHull(hullSpec, components)
		if err != nil {
			return ShipPage{}, fmt.Errorf("hull %s: %w", key, err)
		}
		parsed.Hulls = append(parsed.Hulls, hull)
	}

	p.logger.Debug("Parsed vehicle page",
		"ship", vehicleID,
		"name", name,
		"class", string(class),
		"hulls", len(parsed.Hulls))

	return parsed, nil
}

// parseHull resolves one hull upgrade against the component table. The
// armor view parameters are the first option of every component slot.
func (p *Parser) parseHull(hullSpec, components map[string]any) (HullPage, error) {
	parts, err := objField(hullSpec, "components")
	if err != nil {
		return HullPage{}, err
	}

	hullNames, err := arrField(parts, "hull")
	if err != nil {
		return HullPage{}, err
	}
	if len(hullNames) == 0 {
		return HullPage{}, fmt.Errorf("hull component list is empty")
	}
	hullName, ok := hullNames[0].(string)
	if !ok {
		return HullPage{}, fmt.Errorf("hull component name is not a string")
	}
	hull, err := objField(components, hullName)
	if err != nil {
		return HullPage{}, err
	}

	maxSpeed, err := floatField(hull, "maxSpeed")
	if err != nil {
		return HullPage{}, err
	}
	name, err := strField(hull, "name")
	if err != nil {
		return HullPage{}, err
	}

	hp := HullPage{
		Hull: fleet.HullConfiguration{
			Name:    name,
			SpeedMS: maxSpeed / knotsPerMS,
		},
	}

	// Carriers and some early hulls have no artillery slot at all.
	if artNames, err := arrField(parts, "artillery"); err == nil {
		if len(artNames) != 1 {
			p.logger.Warn("Found an artillery list of unexpected length", "count", len(artNames))
		}
		if len(artNames) == 0 {
			return HullPage{}, fmt.Errorf("artillery component list is empty")
		}
		artName, ok := artNames[0].(string)
		if !ok {
			return HullPage{}, fmt.Errorf("artillery component name is not a string")
		}
		artillery, err := objField(components, artName)
		if err != nil {
			return HullPage{}, err
		}
		battery, err := p.parseArtillery(artillery)
		if err != nil {
			return HullPage{}, fmt.Errorf("artillery %s: %w", artName, err)
		}
		hp.Hull.Battery = []fleet.Battery{battery}
	}

	params := map[string]any{}
	for _, key := range sortedKeys(parts) {
		opts, err := arrField(parts, key)
		if err != nil {
			return HullPage{}, err
		}
		if len(opts) == 0 {
			return HullPage{}, fmt.Errorf("component %s has no options", key)
		}
		params[key] = opts[0]
	}
	body, err := json.Marshal(params)
	if err != nil {
		return HullPage{}, fmt.Errorf("error marshalling armor view params: %w", err)
	}
	hp.ArmorParams = string(body)

	return hp, nil
}

// parseArtillery parses one artillery component into a battery. The
// dispersion parameters sit on the component, the guns under it.
func (p *Parser) parseArtillery(spec map[string]any) (fleet.Battery, error) {
	minDistH, err := floatField(spec, "minDistH")
	if err != nil {
		return fleet.Battery{}, err
	}
	minDistV, err := floatField(spec, "minDistV")
	if err != nil {
		return fleet.Battery{}, err
	}
	maxDist, err := floatField(spec, "maxDist")
	if err != nil {
		return fleet.Battery{}, err
	}
	sigma, err := floatField(spec, "sigmaCount")
	if err != nil {
		return fleet.Battery{}, err
	}

	battery := fleet.Battery{
		Dispersion: fleet.DispersionSpec{
			HorizontalM: minDistH,
			VerticalM:   minDistV,
			MaxRangeM:   maxDist,
			Sigma:       sigma,
		},
	}

	guns, err := objField(spec, "guns")
	if err != nil {
		return fleet.Battery{}, err
	}
	for _, key := range sortedKeys(guns) {
		gun, err := objField(guns, key)
		if err != nil {
			return fleet.Battery{}, err
		}
		ammoList, err := objField(gun, "ammoList")
		if err != nil {
			return fleet.Battery{}, fmt.Errorf("couldn't get ammoList for gun %s", key)
		}

		g := fleet.Gun{Name: key}
		for _, ammoKey := range sortedKeys(ammoList) {
			ammo, err := objField(ammoList, ammoKey)
			if err != nil {
				return fleet.Battery{}, err
			}
			shell, err := p.parseAmmo(ammoKey, ammo)
			if err != nil {
				return fleet.Battery{}, fmt.Errorf("ammo %s: %w", ammoKey, err)
			}
			g.Shells = append(g.Shells, shell)
		}
		battery.Guns = append(battery.Guns, g)
	}

	return battery, nil
}

// parseAmmo parses one ammoList entry. Diameters arrive in meters and are
// stored in millimeters.
func (p *Parser) parseAmmo(name string, ammo map[string]any) (fleet.Shell, error) {
	ammoType, err := strField(ammo, "ammoType")
	if err != nil {
		return fleet.Shell{}, err
	}
	p.logger.Debug("Found ammo", "name", name, "type", ammoType)

	mass, err := floatField(ammo, "bulletMass")
	if err != nil {
		return fleet.Shell{}, err
	}
	diameter, err := floatField(ammo, "bulletDiametr")
	if err != nil {
		return fleet.Shell{}, err
	}
	speed, err := floatField(ammo, "bulletSpeed")
	if err != nil {
		return fleet.Shell{}, err
	}
	drag, err := floatField(ammo, "bulletAirDrag")
	if err != nil {
		return fleet.Shell{}, err
	}
	krupp, err := floatField(ammo, "bulletKrupp")
	if err != nil {
		return fleet.Shell{}, err
	}

	shell := fleet.Shell{
		Name:            name,
		AmmoType:        ammoType,
		CaliberMM:       diameter * 1000,
		MassKG:          mass,
		MuzzleVelocity:  speed,
		DragCoefficient: drag,
		Krupp:           krupp,
	}

	switch ammoType {
	case "HE":
		if shell.AlphaDamage, err = floatField(ammo, "alphaDamage"); err != nil {
			return fleet.Shell{}, err
		}
		if shell.HEPiercingMM, err = floatField(ammo, "alphaPiercingHE"); err != nil {
			return fleet.Shell{}, err
		}
	case "AP":
		if shell.AlphaDamage, err = floatField(ammo, "alphaDamage"); err != nil {
			return fleet.Shell{}, err
		}
		if shell.DetonatorS, err = floatField(ammo, "bulletDetonator"); err != nil {
			return fleet.Shell{}, err
		}
		if shell.DetonatorThresholdMM, err = floatField(ammo, "bulletDetonatorThreshold"); err != nil {
			return fleet.Shell{}, err
		}
	case "CS":
		// Semi-AP: penetration comes off the calibration table, not the
		// page. Detonator fields are only present on newer entries.
		if shell.AlphaDamage, err = floatField(ammo, "alphaDamage"); err != nil {
			return fleet.Shell{}, err
		}
		if det, err := floatField(ammo, "bulletDetonator"); err == nil {
			shell.DetonatorS = det
		}
		if thr, err := floatField(ammo, "bulletDetonatorThreshold"); err == nil {
			shell.DetonatorThresholdMM = thr
		}
	default:
		return fleet.Shell{}, fmt.Errorf("unknown ammo type %q", ammoType)
	}

	return shell, nil
}
