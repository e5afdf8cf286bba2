package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/shellfall/engine/v2/internal/model"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// ShipToFleet rebuilds a warship from its database rows. Hulls, batteries
// and shells must have been preloaded.
func ShipToFleet(in model.Ship) (fleet.Ship, error) {
	out := fleet.Ship{
		ID:     in.GameID,
		Name:   in.Name,
		Nation: in.Nation,
		Class:  fleet.ShipClass(in.Class),
		Tier:   int(in.Tier),
	}
	for _, h := range in.Hulls {
		hull, err := hullToFleet(h)
		if err != nil {
			return fleet.Ship{}, fmt.Errorf("hull %s: %w", h.Name, err)
		}
		out.Hulls = append(out.Hulls, hull)
	}
	return out, nil
}

func hullToFleet(in model.Hull) (fleet.HullConfiguration, error) {
	plates, err := platesFromJSON(in.Plates)
	if err != nil {
		return fleet.HullConfiguration{}, err
	}
	out := fleet.HullConfiguration{
		Name:    in.Name,
		SpeedMS: in.SpeedMS,
		LengthM: in.LengthM,
		Plates:  plates,
	}
	for _, b := range in.Batteries {
		out.Battery = append(out.Battery, batteryToFleet(b))
	}
	return out, nil
}

// batteryToFleet regroups the flat shell rows into guns by turret name, in
// first seen order. Rows come back in insertion order, which followed the
// encyclopedia order when the ship was fetched.
func batteryToFleet(in model.MainBattery) fleet.Battery {
	out := fleet.Battery{
		Dispersion: fleet.DispersionSpec{
			HorizontalM: in.Dispersion.HorizontalM,
			VerticalM:   in.Dispersion.VerticalM,
			MaxRangeM:   in.Dispersion.MaxRangeM,
			Sigma:       in.Dispersion.Sigma,
		},
	}
	index := make(map[string]int)
	for _, s := range in.Shells {
		i, ok := index[s.GunName]
		if !ok {
			i = len(out.Guns)
			index[s.GunName] = i
			out.Guns = append(out.Guns, fleet.Gun{Name: s.GunName})
		}
		out.Guns[i].Shells = append(out.Guns[i].Shells, ShellToFleet(s))
	}
	return out
}

// ShellToFleet converts a shell row back to its domain type.
func ShellToFleet(in model.Shell) fleet.Shell {
	return fleet.Shell{
		Name:                 in.Name,
		AmmoType:             in.AmmoType,
		CaliberMM:            in.CaliberMM,
		MassKG:               in.MassKG,
		MuzzleVelocity:       in.MuzzleVelocity,
		DragCoefficient:      in.DragCoefficient,
		Krupp:                in.Krupp,
		AlphaDamage:          in.AlphaDamage,
		HEPiercingMM:         in.HEPiercingMM,
		DetonatorS:           in.DetonatorS,
		DetonatorThresholdMM: in.DetonatorThresholdMM,
	}
}

// SweepRunToFleet converts a run row. The ship game id comes from the
// caller, run rows only hold the numeric key.
func SweepRunToFleet(in model.SweepRun, shipGameID string) fleet.SweepRun {
	return fleet.SweepRun{
		ShipID:             shipGameID,
		Shell:              in.ShellName,
		StartRangeM:        in.StartRangeM,
		EndRangeM:          in.EndRangeM,
		StepM:              in.StepM,
		TargetThicknessMM:  in.TargetThicknessMM,
		TargetObliquityDeg: in.TargetObliquityDeg,
		StartedAt:          in.StartedAt,
		CompletedAt:        in.CompletedAt,
		Points:             in.Points,
		Unreachable:        in.Unreachable,
	}
}

// EngagementToFleet converts an engagement row. The fall of shot point is
// derived from the range and not carried back.
func EngagementToFleet(in model.Engagement) fleet.EngagementRecord {
	return fleet.EngagementRecord{
		ShipID:                 in.ShipGameID,
		Shell:                  in.ShellName,
		RangeM:                 in.RangeM,
		ElevationDeg:           in.ElevationDeg,
		ImpactVelocity:         in.ImpactVelocity,
		ImpactAngleDeg:         in.ImpactAngleDeg,
		TimeOfFlightS:          in.TimeOfFlightS,
		Outcome:                in.Outcome,
		EffectivePenetrationMM: in.EffectivePenetrationMM,
		TargetThicknessMM:      in.TargetThicknessMM,
		TargetObliquityDeg:     in.TargetObliquityDeg,
		EvaluatedAt:            in.Time,
	}
}

func platesFromJSON(raw datatypes.JSON) ([]fleet.ArmorPlate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var plates []fleet.ArmorPlate
	if err := json.Unmarshal(raw, &plates); err != nil {
		return nil, fmt.Errorf("unmarshaling armor plates: %w", err)
	}
	if len(plates) == 0 {
		return nil, nil
	}
	return plates, nil
}
