package fleet

import (
	"time"

	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// EngagementRecord is one evaluated firing solution, flattened for storage
// and streaming.
type EngagementRecord struct {
	ShipID string
	Shell  string

	RangeM       float64
	ElevationDeg float64

	ImpactVelocity float64
	ImpactAngleDeg float64
	TimeOfFlightS  float64

	Outcome                string
	EffectivePenetrationMM float64

	TargetThicknessMM  float64
	TargetObliquityDeg float64

	EvaluatedAt time.Time
}

// NewEngagementRecord flattens a gunnery report into a record.
func NewEngagementRecord(shipID, shell string, q gunnery.ArmorQuery, rep gunnery.EngagementReport) EngagementRecord {
	return EngagementRecord{
		ShipID:                 shipID,
		Shell:                  shell,
		RangeM:                 rep.RangeM,
		ElevationDeg:           rep.ElevationDeg,
		ImpactVelocity:         rep.Impact.Velocity,
		ImpactAngleDeg:         rep.Impact.AngleDeg,
		TimeOfFlightS:          rep.Impact.TimeOfFlight,
		Outcome:                rep.Outcome.Kind.String(),
		EffectivePenetrationMM: rep.Outcome.EffectivePenetrationMM,
		TargetThicknessMM:      q.ThicknessMM,
		TargetObliquityDeg:     q.ObliquityDeg,
		EvaluatedAt:            time.Now(),
	}
}

// SweepRun describes one range sweep of a shell against a plate. Records
// reference it through the storage layer's keys.
type SweepRun struct {
	ShipID string
	Shell  string

	StartRangeM float64
	EndRangeM   float64
	StepM       float64

	TargetThicknessMM  float64
	TargetObliquityDeg float64

	StartedAt   time.Time
	CompletedAt time.Time
	Points      int
	Unreachable int
}
