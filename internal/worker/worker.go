package worker

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shellfall/engine/v2/internal/api"
	"github.com/shellfall/engine/v2/internal/cache"
	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/influx"
	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/internal/parser"
	"github.com/shellfall/engine/v2/internal/session"
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/pkg/gunnery"
)

// ErrShipNotLoaded is returned when an operation names a ship that is
// neither cached nor present in the storage snapshot.
var ErrShipNotLoaded = errors.New("ship not loaded")

// ErrNoSuchShell is returned when a ship carries no shell under the
// requested name.
var ErrNoSuchShell = errors.New("no such shell")

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	FleetCache  *cache.FleetCache
	LogManager  *logging.SlogManager
	Parser      *parser.Parser
	APIClient   *api.Client
	Session     *session.Context
	Influx      *influx.Manager
	Calibration gunnery.Calibration
	Solver      config.SolverConfig
	Sweep       config.SweepConfig
}

// Manager owns the engine's command handlers and the sweep worker pool.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	pendingJobs atomic.Int64
	lastFlushNS atomic.Int64
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

func (m *Manager) logger() *slog.Logger {
	if m.deps.LogManager != nil {
		return m.deps.LogManager.Logger()
	}
	return slog.Default()
}

// SolverOptions converts the configured integrator settings into solver
// options. Zero fields keep the solver defaults.
func (m *Manager) SolverOptions() []gunnery.Option {
	return []gunnery.Option{
		gunnery.WithStep(m.deps.Solver.Step),
		gunnery.WithTolerance(m.deps.Solver.Tolerance),
		gunnery.WithMaxIterations(m.deps.Solver.MaxIterations),
	}
}

// DBWriteDurationProvider is an optional interface that backends can
// implement to expose their last write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// WriteQueueProvider is an optional interface that backends can implement
// to expose how many writes they have buffered.
type WriteQueueProvider interface {
	GetWriteQueueLength() int
}

// GetLastFlushDuration returns the duration of the last storage write
// cycle: the backend's own measure when it keeps one, otherwise the
// manager's record flush.
func (m *Manager) GetLastFlushDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		if d := p.GetLastDBWriteDuration(); d > 0 {
			return d
		}
	}
	return time.Duration(m.lastFlushNS.Load())
}

// GetPendingJobs reports sweep points handed to the pool but not yet
// solved.
func (m *Manager) GetPendingJobs() int {
	return int(m.pendingJobs.Load())
}

// GetPendingWrites reports rows the backend has buffered. Backends without
// a write queue report 0.
func (m *Manager) GetPendingWrites() int {
	if p, ok := m.backend.(WriteQueueProvider); ok {
		return p.GetWriteQueueLength()
	}
	return 0
}
