// internal/storage/storage.go
package storage

import (
	"gorm.io/gorm"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Fleet snapshot
	SaveShip(s *fleet.Ship) error

	// Run management
	StartRun(run *fleet.SweepRun) error
	EndRun(run *fleet.SweepRun) error

	// Point recording
	RecordEngagement(e *fleet.EngagementRecord) error
}

// FleetLoader is an optional interface for storage backends that can read
// fetched ships back out of the store. Streaming backends cannot.
type FleetLoader interface {
	LoadShip(gameID string) (*fleet.Ship, error)
	LoadFleet() ([]fleet.Ship, error)
}

// Exportable is an optional interface for storage backends that leave a
// run artifact on disk when a run ends.
type Exportable interface {
	GetExportedFilePath() string
}

// DatabaseProvider is an optional interface for backends that expose their
// underlying GORM connection, used by the monitor to write perf rows.
type DatabaseProvider interface {
	DB() *gorm.DB
	IsDatabaseValid() bool
}
