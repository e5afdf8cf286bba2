package model

import (
	"database/sql"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a slice of all the models that should be migrated in a
// server database (PostgreSQL).
var DatabaseModels []interface{} = []interface{}{
	&EngineInfo{},
	&Ship{},
	&Hull{},
	&MainBattery{},
	&Shell{},
	&SweepRun{},
	&Engagement{},
	&EnginePerformance{},
}

// DatabaseModelsSQLite is a slice of all the models that should be migrated
// in a local (SQLite) database.
var DatabaseModelsSQLite []interface{} = []interface{}{
	&EngineInfo{},
	&Ship{},
	&Hull{},
	&MainBattery{},
	&Shell{},
	&SweepRun{},
	&Engagement{},
	&EnginePerformance{},
}

///////////////////////
// SYSTEM MODELS
///////////////////////

// EngineInfo stores a single row describing the engine instance that owns
// the database.
type EngineInfo struct {
	gorm.Model
	Name      string `json:"name" gorm:"size:127"`
	Version   string `json:"version" gorm:"size:32"`
	Game      string `json:"game" gorm:"size:64"`
	SourceURL string `json:"sourceUrl" gorm:"size:255"`
}

func (i *EngineInfo) TableName() string {
	return "engine_infos"
}

// EnginePerformance is the model for internal engine performance metrics.
type EnginePerformance struct {
	Time                time.Time    `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	QueueLengths        QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	LastWriteDurationMs float32      `json:"lastWriteDurationMs"`
}

func (p *EnginePerformance) TableName() string {
	return "engine_performances"
}

// QueueLengths tracks the queue depths at sample time: solver jobs still
// waiting for a worker and engagement rows waiting for the DB writer.
type QueueLengths struct {
	SweepJobs   uint16 `json:"sweepJobs"`
	Engagements uint16 `json:"engagements"`
}

///////////////////////
// FLEET MODELS
///////////////////////

// Ship is a warship fetched from the game encyclopedia.
type Ship struct {
	gorm.Model
	GameID    string    `json:"gameId" gorm:"size:16;uniqueIndex:idx_ship_game_id"`
	Name      string    `json:"name" gorm:"size:127"`
	Nation    string    `json:"nation" gorm:"size:32"`
	Class     string    `json:"class" gorm:"size:16"`
	Tier      uint8     `json:"tier"`
	FetchedAt time.Time `json:"fetchedAt" gorm:"type:timestamptz;index:idx_ship_fetched_at"`
	Hulls     []Hull    `json:"hulls"`
}

func (s *Ship) TableName() string {
	return "ships"
}

// GetOrInsert returns the existing row for the same game id, or creates one.
// Returns true if the ship was created.
func (s *Ship) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing Ship
	err = db.Where("game_id = ?", s.GameID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(s).Error
			if err != nil {
				return false, err
			}
			return true, nil
		}
		return false, err
	}
	*s = existing
	return false, nil
}

// Hull is one researchable hull configuration of a ship. Plates holds the
// transformed armor mesh triangles as JSON rather than relational rows;
// meshes are only ever read back whole.
type Hull struct {
	gorm.Model
	ShipID    uint           `json:"shipId" gorm:"index:idx_hull_ship_id"`
	Ship      Ship           `json:"-" gorm:"foreignkey:ShipID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Name      string         `json:"name" gorm:"size:127"`
	SpeedMS   float64        `json:"speedMs"`
	LengthM   float64        `json:"lengthM"`
	Plates    datatypes.JSON `json:"plates" gorm:"default:'[]'"`
	Batteries []MainBattery  `json:"batteries"`
}

func (h *Hull) TableName() string {
	return "hulls"
}

// MainBattery is the artillery component of a hull.
type MainBattery struct {
	gorm.Model
	HullID     uint             `json:"hullId" gorm:"index:idx_battery_hull_id"`
	Hull       Hull             `json:"-" gorm:"foreignkey:HullID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Dispersion DispersionParams `json:"dispersion" gorm:"embedded;embeddedPrefix:dispersion_"`
	Shells     []Shell          `json:"shells" gorm:"foreignkey:BatteryID"`
}

func (b *MainBattery) TableName() string {
	return "main_batteries"
}

// DispersionParams are the fall of shot parameters of a battery.
type DispersionParams struct {
	HorizontalM float64 `json:"horizontalM"`
	VerticalM   float64 `json:"verticalM"`
	MaxRangeM   float64 `json:"maxRangeM"`
	Sigma       float64 `json:"sigma"`
}

// Shell is one ammunition option of a battery. GunName records which turret
// the shell belongs to so that a reloaded snapshot can group shells back
// into guns.
type Shell struct {
	gorm.Model
	BatteryID uint        `json:"batteryId" gorm:"index:idx_shell_battery_id"`
	Battery   MainBattery `json:"-" gorm:"foreignkey:BatteryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GunName   string      `json:"gunName" gorm:"size:64"`
	Name      string      `json:"name" gorm:"size:64"`
	AmmoType  string      `json:"ammoType" gorm:"size:8"`

	CaliberMM       float64 `json:"caliberMm"`
	MassKG          float64 `json:"massKg"`
	MuzzleVelocity  float64 `json:"muzzleVelocity"`
	DragCoefficient float64 `json:"dragCoefficient"`
	Krupp           float64 `json:"krupp"`
	AlphaDamage     float64 `json:"alphaDamage"`
	HEPiercingMM    float64 `json:"hePiercingMm"`

	DetonatorS           float64 `json:"detonatorS"`
	DetonatorThresholdMM float64 `json:"detonatorThresholdMm"`
}

func (s *Shell) TableName() string {
	return "shells"
}

///////////////////////
// RUN MODELS
///////////////////////

// SweepRun is one range sweep of a shell against a reference plate.
type SweepRun struct {
	gorm.Model
	ShipID    uint   `json:"shipId" gorm:"index:idx_run_ship_id"`
	Ship      Ship   `json:"-" gorm:"foreignkey:ShipID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ShellName string `json:"shellName" gorm:"size:64"`

	StartRangeM float64 `json:"startRangeM"`
	EndRangeM   float64 `json:"endRangeM"`
	StepM       float64 `json:"stepM"`

	TargetThicknessMM  float64 `json:"targetThicknessMm"`
	TargetObliquityDeg float64 `json:"targetObliquityDeg"`

	StartedAt   time.Time `json:"startedAt" gorm:"type:timestamptz;index:idx_run_started_at"`
	CompletedAt time.Time `json:"completedAt" gorm:"type:timestamptz"`
	Points      int       `json:"points"`
	Unreachable int       `json:"unreachable"`
}

func (r *SweepRun) TableName() string {
	return "sweep_runs"
}

// Engagement is one evaluated firing solution. RunID is null for one off
// evaluations that were not part of a sweep.
type Engagement struct {
	ID    uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time  time.Time     `json:"time" gorm:"type:timestamptz;index:idx_engagement_time"`
	RunID sql.NullInt32 `json:"runId" gorm:"index:idx_engagement_run_id;default:NULL"`

	ShipGameID string `json:"shipId" gorm:"size:16;index:idx_engagement_ship_game_id"`
	ShellName  string `json:"shellName" gorm:"size:64"`

	RangeM       float64 `json:"rangeM"`
	ElevationDeg float64 `json:"elevationDeg"`

	ImpactVelocity float64 `json:"impactVelocity"`
	ImpactAngleDeg float64 `json:"impactAngleDeg"`
	TimeOfFlightS  float64 `json:"timeOfFlightS"`

	Outcome                string  `json:"outcome" gorm:"size:32"`
	EffectivePenetrationMM float64 `json:"effectivePenetrationMm"`
	TargetThicknessMM      float64 `json:"targetThicknessMm"`
	TargetObliquityDeg     float64 `json:"targetObliquityDeg"`

	// FallOfShot is the impact point on the plotting plane, due north of
	// the firing origin at the engagement range.
	FallOfShot geom.Point `json:"-"`
}

func (e *Engagement) TableName() string {
	return "engagements"
}
