package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shellfall/engine/v2/internal/influx"
	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/internal/model"
	"github.com/shellfall/engine/v2/internal/session"
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/internal/worker"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Backend       storage.Backend
	LogManager    *logging.SlogManager
	Session       *session.Context
	WorkerManager *worker.Manager
	Influx        *influx.Manager
	StatusDir     string
}

// Service samples engine health once a second while a command runs: queue
// depths, last flush duration, the session's active run. Samples land in a
// status file, the database when one is connected, and InfluxDB when enabled.
type Service struct {
	deps      Dependencies
	interval  time.Duration
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		interval: time.Second,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runStatus is the session slice of the status file.
type runStatus struct {
	Ship  string `json:"ship"`
	Shell string `json:"shell,omitempty"`
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus(
	writeQueues bool,
	lastWrite bool,
	activeRun bool,
) (output []string, perf model.EnginePerformance) {
	queuesObj := model.QueueLengths{
		SweepJobs:   clampUint16(s.deps.WorkerManager.GetPendingJobs()),
		Engagements: clampUint16(s.deps.WorkerManager.GetPendingWrites()),
	}

	perf = model.EnginePerformance{
		Time:                time.Now(),
		QueueLengths:        queuesObj,
		LastWriteDurationMs: float32(s.deps.WorkerManager.GetLastFlushDuration().Milliseconds()),
	}

	if writeQueues {
		queuesStr, err := json.MarshalIndent(queuesObj, "", "  ")
		if err != nil {
			queuesStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(queuesStr))
	}
	if lastWrite {
		lastWriteStr, err := json.MarshalIndent(perf.LastWriteDurationMs, "", "  ")
		if err != nil {
			lastWriteStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(lastWriteStr))
	}
	if activeRun {
		statusObj := runStatus{Ship: s.deps.Session.GetShip().ID}
		if statusObj.Ship == "" {
			statusObj.Ship = s.deps.Session.GetShip().Name
		}
		if run := s.deps.Session.GetRun(); run != nil {
			statusObj.Shell = run.Shell
		}
		statusStr, err := json.MarshalIndent(statusObj, "", "  ")
		if err != nil {
			statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(statusStr))
	}

	return output, perf
}

// clampUint16 narrows a queue depth for the perf row. Depths beyond 64k
// only happen when a writer has stalled, saturating is fine.
func clampUint16(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}

// ValidateHypertables validates and creates TimescaleDB hypertables
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.LogManager.Logger()

	provider, ok := s.deps.Backend.(storage.DatabaseProvider)
	if !ok || !provider.IsDatabaseValid() {
		return errors.New("hypertables require a connected database backend")
	}
	db := provider.DB()

	for table := range tables {
		hypertable := any(nil)
		db.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			logger.Info("Hypertable already configured", "table", table)
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		err := db.Exec(queryCreateHypertable).Error
		if err != nil {
			logger.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("Created hypertable", "table", table)

		if len(tables[table]) > 0 {
			queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
			err = db.Exec(
				queryCompressHypertable,
				strings.Join(tables[table], ","),
			).Error
		} else {
			err = db.Exec(fmt.Sprintf(`
				ALTER TABLE %s SET (timescaledb.compress);
			`, table)).Error
		}
		if err != nil {
			logger.Error("Failed to enable compression", "table", table, "error", err)
			return err
		}
		logger.Info("Enabled hypertable compression", "table", table)

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		err = db.Exec(queryCompressAfterHypertable).Error
		if err != nil {
			logger.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
		logger.Info("Set compress_after", "table", table)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			}
			defer statusFile.Close()
		}

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(s.interval)

				statusStr, perf := s.GetProgramStatus(true, true, true)

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if provider, ok := s.deps.Backend.(storage.DatabaseProvider); ok && provider.IsDatabaseValid() {
					if err := provider.DB().Create(&perf).Error; err != nil {
						logger.Error("Error writing performance sample", "error", err)
					}
				}

				if s.deps.Influx != nil {
					bucket, point := influx.PerformancePoint(&perf)
					if err := s.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
						logger.Error("Error writing performance point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
