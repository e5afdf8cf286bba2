// Package postgresstorage implements the storage.Backend interface on a
// server Postgres database. When the server is unreachable it falls back to
// an in-memory SQLite database that is dumped to disk on close, so runs
// survive a dead server.
package postgresstorage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/database"
	"github.com/shellfall/engine/v2/internal/logging"
	gormstorage "github.com/shellfall/engine/v2/internal/storage/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// DB is optional; Init connects through the database manager when it is nil.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend wraps the GORM backend with server connection management.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         deps.DB,
			LogManager: deps.LogManager,
		}),
		deps: deps,
	}
}

// Init connects to the server, migrates the schema and initializes the
// embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		dbLog := zerolog.New(os.Stderr).With().Timestamp().Str("component", "database").Logger()
		b.manager = database.NewManager(dbLog)

		if err := b.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		if b.manager.ShouldSaveLocal {
			b.deps.LogManager.Logger().Warn("postgres unreachable, saving to local SQLite database")
			b.manager.SqliteFilePath = config.GetStorageConfig().SQLite.Path
		}
		if err := b.manager.Setup(); err != nil {
			return fmt.Errorf("failed to set up schema: %w", err)
		}
		b.SetDB(b.manager.DB)
	}

	return b.Backend.Init()
}

// Close drains the embedded GORM backend. In fallback mode the in-memory
// database is then dumped to disk.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}

	if b.manager != nil && b.manager.ShouldSaveLocal && b.manager.SqliteFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(b.manager.SqliteFilePath), 0755); err != nil {
			return fmt.Errorf("failed to create dump directory: %w", err)
		}
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("fallback dump: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying connection for the monitor.
func (b *Backend) DB() *gorm.DB {
	if b.manager != nil {
		return b.manager.DB
	}
	return b.deps.DB
}

// IsDatabaseValid reports whether rows can be written.
func (b *Backend) IsDatabaseValid() bool {
	if b.manager != nil {
		return b.manager.IsValid
	}
	return b.deps.DB != nil
}

// GetExportedFilePath returns the fallback dump path, empty when rows went
// to the server.
func (b *Backend) GetExportedFilePath() string {
	if b.manager != nil && b.manager.ShouldSaveLocal {
		return b.manager.SqliteFilePath
	}
	return ""
}
