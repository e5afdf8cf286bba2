// Package convert translates between the fleet domain types and the gorm
// database models.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/shellfall/engine/v2/internal/geo"
	"github.com/shellfall/engine/v2/internal/model"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// plotOrigin anchors fall of shot points. Every engagement is plotted due
// north of a shared origin at its own range, so range comparisons survive
// the round trip through geometry columns.
var plotOrigin = geom.NewPoint(geom.Coordinates{XY: geom.XY{X: 0, Y: 0}})

// FleetToShip converts a fetched warship into its database rows, nesting
// hulls, batteries and shells so that a single create persists the graph.
func FleetToShip(in fleet.Ship, fetchedAt time.Time) (model.Ship, error) {
	out := model.Ship{
		GameID:    in.ID,
		Name:      in.Name,
		Nation:    in.Nation,
		Class:     string(in.Class),
		Tier:      uint8(in.Tier),
		FetchedAt: fetchedAt,
	}
	for _, h := range in.Hulls {
		hull, err := fleetToHull(h)
		if err != nil {
			return model.Ship{}, fmt.Errorf("hull %s: %w", h.Name, err)
		}
		out.Hulls = append(out.Hulls, hull)
	}
	return out, nil
}

func fleetToHull(in fleet.HullConfiguration) (model.Hull, error) {
	plates, err := platesToJSON(in.Plates)
	if err != nil {
		return model.Hull{}, err
	}
	out := model.Hull{
		Name:    in.Name,
		SpeedMS: in.SpeedMS,
		LengthM: in.LengthM,
		Plates:  plates,
	}
	for _, b := range in.Battery {
		out.Batteries = append(out.Batteries, fleetToBattery(b))
	}
	return out, nil
}

func fleetToBattery(in fleet.Battery) model.MainBattery {
	out := model.MainBattery{
		Dispersion: model.DispersionParams{
			HorizontalM: in.Dispersion.HorizontalM,
			VerticalM:   in.Dispersion.VerticalM,
			MaxRangeM:   in.Dispersion.MaxRangeM,
			Sigma:       in.Dispersion.Sigma,
		},
	}
	for _, g := range in.Guns {
		for _, s := range g.Shells {
			out.Shells = append(out.Shells, FleetToShell(g.Name, s))
		}
	}
	return out
}

// FleetToShell flattens one ammunition option, tagged with its turret name.
func FleetToShell(gunName string, in fleet.Shell) model.Shell {
	return model.Shell{
		GunName:              gunName,
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

// FleetToSweepRun converts a run descriptor. The caller resolves the owning
// ship row first, run rows never create ships.
func FleetToSweepRun(in fleet.SweepRun, shipID uint) model.SweepRun {
	return model.SweepRun{
		ShipID:             shipID,
		ShellName:          in.Shell,
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

// FleetToEngagement converts an evaluated solution. RunID is stamped later
// by the write queue, when the owning run is known.
func FleetToEngagement(in fleet.EngagementRecord) (model.Engagement, error) {
	fallOfShot, err := geo.FallOfShot(plotOrigin, 0, in.RangeM)
	if err != nil {
		return model.Engagement{}, fmt.Errorf("fall of shot: %w", err)
	}
	return model.Engagement{
		Time:                   in.EvaluatedAt,
		ShipGameID:             in.ShipID,
		ShellName:              in.Shell,
		RangeM:                 in.RangeM,
		ElevationDeg:           in.ElevationDeg,
		ImpactVelocity:         in.ImpactVelocity,
		ImpactAngleDeg:         in.ImpactAngleDeg,
		TimeOfFlightS:          in.TimeOfFlightS,
		Outcome:                in.Outcome,
		EffectivePenetrationMM: in.EffectivePenetrationMM,
		TargetThicknessMM:      in.TargetThicknessMM,
		TargetObliquityDeg:     in.TargetObliquityDeg,
		FallOfShot:             fallOfShot,
	}, nil
}

func platesToJSON(plates []fleet.ArmorPlate) (datatypes.JSON, error) {
	if len(plates) == 0 {
		return datatypes.JSON("[]"), nil
	}
	raw, err := json.Marshal(plates)
	if err != nil {
		return nil, fmt.Errorf("marshaling armor plates: %w", err)
	}
	return datatypes.JSON(raw), nil
}
