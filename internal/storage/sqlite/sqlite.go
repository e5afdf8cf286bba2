// Package sqlitestorage implements the storage.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition — the only SQLite-specific
// concerns are (a) creating the in-memory DB, (b) schema migration without
// PostGIS, and (c) the periodic disk dump.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/database"
	"github.com/shellfall/engine/v2/internal/logging"
	gormstorage "github.com/shellfall/engine/v2/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager  *database.Manager
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager) (*Backend, error) {
	dbLog := zerolog.New(os.Stderr).With().Timestamp().Str("component", "database").Logger()
	manager := database.NewManager(dbLog)

	db, err := manager.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	manager.DB = db
	manager.ShouldSaveLocal = true
	manager.SqliteFilePath = cfg.Path
	manager.IsValid = true

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		manager:  manager,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, initializes the embedded GORM backend and
// starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.manager.Setup(); err != nil {
		return fmt.Errorf("failed to set up SQLite schema: %w", err)
	}

	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.Path != "" {
		dir := filepath.Dir(b.cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create dump directory: %w", err)
		}
		if paths, err := database.GetBackupDBPaths(dir); err == nil && len(paths) > 0 {
			b.log.Logger().Debug("existing run databases", "dir", dir, "count", len(paths))
		}
	}

	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, drains the embedded GORM backend and
// writes a final dump so the run survives the process.
func (b *Backend) Close() error {
	close(b.stopChan)

	if err := b.Backend.Close(); err != nil {
		return err
	}

	if b.cfg.Path != "" {
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("final dump: %w", err)
		}
	}
	return nil
}

// GetExportedFilePath returns the disk dump path.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.Path
}

// DB exposes the underlying connection for the monitor.
func (b *Backend) DB() *gorm.DB {
	return b.manager.DB
}

// IsDatabaseValid reports whether rows can be written.
func (b *Backend) IsDatabaseValid() bool {
	return b.manager.IsValid
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via
// VACUUM INTO. VACUUM INTO creates a point-in-time snapshot, so no pause
// mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.manager.DumpMemoryToDisk(); err != nil {
				b.log.Logger().Error("error dumping to disk", "error", err)
			} else {
				b.log.Logger().Debug("dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
