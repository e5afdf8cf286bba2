// Package gormstorage implements the row traffic shared by the SQLite and
// Postgres storage backends: fleet snapshot reads and writes, run rows, and
// an engagement write queue drained by a background writer goroutine.
package gormstorage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/internal/model"
	"github.com/shellfall/engine/v2/internal/model/convert"
	"github.com/shellfall/engine/v2/internal/queue"
	"github.com/shellfall/engine/v2/pkg/fleet"
)

// writeInterval is how often the background writer drains the queues.
const writeInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Engagements *queue.Queue[model.Engagement]
}

func newQueues() *queues {
	return &queues{
		Engagements: queue.New[model.Engagement](),
	}
}

// Backend implements the storage interfaces on top of a GORM connection.
// With a nil DB it degrades to queue-only mode, which tests use to exercise
// the queue plumbing without a database.
type Backend struct {
	deps     Dependencies
	queues   *queues
	runID    atomic.Uint64
	stopChan chan struct{}
	dbReady  bool

	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// SetDB attaches the connection. Wrappers that connect during their own
// Init call this before initializing the embedded backend.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

func (b *Backend) log() *slog.Logger {
	if b.deps.LogManager != nil {
		return b.deps.LogManager.Logger()
	}
	return slog.Default()
}

// Init creates the internal queues and starts the DB writer goroutine when a
// connection is present.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	b.dbReady = true
	b.startDBWriter()
	return nil
}

// Close stops the DB writer goroutine and drains whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.stopChan = nil
	}
	if b.dbReady {
		b.flushEngagements()
	}
	return nil
}

// SaveShip persists a fetched warship with all its hulls, batteries and
// shells. Refetching a known ship is a no-op, snapshots are insert-only.
func (b *Backend) SaveShip(s *fleet.Ship) error {
	if b.deps.DB == nil {
		return nil
	}

	row, err := convert.FleetToShip(*s, time.Now())
	if err != nil {
		return fmt.Errorf("converting ship %s: %w", s.ID, err)
	}

	created, err := row.GetOrInsert(b.deps.DB)
	if err != nil {
		return fmt.Errorf("saving ship %s: %w", s.ID, err)
	}
	if !created {
		b.log().Debug("ship already in snapshot", "ship", s.ID)
	}
	return nil
}

// LoadShip reads one warship back out of the snapshot.
func (b *Backend) LoadShip(gameID string) (*fleet.Ship, error) {
	if b.deps.DB == nil {
		return nil, fmt.Errorf("no database connection")
	}

	var row model.Ship
	err := b.deps.DB.
		Preload("Hulls.Batteries.Shells").
		Where("game_id = ?", gameID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", fleet.ErrShipNotFound, gameID)
		}
		return nil, fmt.Errorf("loading ship %s: %w", gameID, err)
	}

	ship, err := convert.ShipToFleet(row)
	if err != nil {
		return nil, fmt.Errorf("converting ship %s: %w", gameID, err)
	}
	return &ship, nil
}

// LoadFleet reads every fetched warship, ordered by game id.
func (b *Backend) LoadFleet() ([]fleet.Ship, error) {
	if b.deps.DB == nil {
		return nil, fmt.Errorf("no database connection")
	}

	var rows []model.Ship
	err := b.deps.DB.
		Preload("Hulls.Batteries.Shells").
		Order("game_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading fleet: %w", err)
	}

	ships := make([]fleet.Ship, 0, len(rows))
	for _, row := range rows {
		ship, err := convert.ShipToFleet(row)
		if err != nil {
			return nil, fmt.Errorf("converting ship %s: %w", row.GameID, err)
		}
		ships = append(ships, ship)
	}
	return ships, nil
}

// StartRun creates the run row and arms the writer to stamp engagements
// with its id. The owning ship row is created as a stub if the snapshot
// does not have it yet.
func (b *Backend) StartRun(run *fleet.SweepRun) error {
	if b.deps.DB == nil {
		return nil
	}

	shipRow := model.Ship{GameID: run.ShipID, Name: run.ShipID}
	if _, err := shipRow.GetOrInsert(b.deps.DB); err != nil {
		return fmt.Errorf("resolving ship %s: %w", run.ShipID, err)
	}

	runRow := convert.FleetToSweepRun(*run, shipRow.ID)
	if err := b.deps.DB.Create(&runRow).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	b.runID.Store(uint64(runRow.ID))
	return nil
}

// SetRunID arms the writer with an existing run id (used by CLI tools).
func (b *Backend) SetRunID(id uint) {
	b.runID.Store(uint64(id))
}

// EndRun drains the queue into the closing run, then writes its final
// counters and disarms the run id.
func (b *Backend) EndRun(run *fleet.SweepRun) error {
	if b.deps.DB == nil {
		return nil
	}

	b.flushEngagements()

	runID := uint(b.runID.Load())
	if runID == 0 {
		return nil
	}

	err := b.deps.DB.Model(&model.SweepRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"completed_at": run.CompletedAt,
		"points":       run.Points,
		"unreachable":  run.Unreachable,
	}).Error
	if err != nil {
		return fmt.Errorf("closing run %d: %w", runID, err)
	}

	b.runID.Store(0)
	return nil
}

// RecordEngagement converts an evaluated solution and pushes it to the
// write queue.
func (b *Backend) RecordEngagement(e *fleet.EngagementRecord) error {
	row, err := convert.FleetToEngagement(*e)
	if err != nil {
		return err
	}
	b.queues.Engagements.Push(row)
	return nil
}

// GetLastDBWriteDuration returns how long the last queue drain took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return b.lastDBWriteDuration
}

// GetWriteQueueLength returns how many engagements wait for the writer.
func (b *Backend) GetWriteQueueLength() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.Engagements.Len()
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue for the next cycle. Returns the number
// of rows written.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) int {
	if q.Empty() {
		return 0
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error("error creating rows", "queue", name, "error", err)
		tx.Rollback()
		q.Push(items...)
		return 0
	}

	tx.Commit()
	return len(items)
}

// flushEngagements drains the engagement queue, stamping each row with the
// active run. Rows queued outside a run keep a null run id.
func (b *Backend) flushEngagements() {
	runID := uint(b.runID.Load())
	stamp := func(items []model.Engagement) {
		if runID == 0 {
			return
		}
		for i := range items {
			items[i].RunID = sql.NullInt32{Int32: int32(runID), Valid: true}
		}
	}

	start := time.Now()
	if n := writeQueue(b.deps.DB, b.queues.Engagements, "engagements", b.log(), stamp); n > 0 {
		b.lastDBWriteDuration = time.Since(start)
		b.log().Debug("wrote engagements", "count", n, "duration", b.lastDBWriteDuration)
	}
}

// startDBWriter starts the background goroutine that periodically drains the
// queues into the DB.
func (b *Backend) startDBWriter() {
	stop := b.stopChan
	go func() {
		ticker := time.NewTicker(writeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !b.dbReady {
					continue
				}
				b.flushEngagements()
			}
		}
	}()
}
