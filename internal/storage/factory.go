// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/internal/storage/memory"
	postgresstorage "github.com/shellfall/engine/v2/internal/storage/postgres"
	sqlitestorage "github.com/shellfall/engine/v2/internal/storage/sqlite"
	websocketstorage "github.com/shellfall/engine/v2/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgresstorage.New(postgresstorage.Dependencies{
			LogManager: logManager,
		}), nil
	case "sqlite":
		b, err := sqlitestorage.New(cfg.SQLite, logManager)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "websocket":
		return websocketstorage.New(websocketstorage.Config{
			URL:    cfg.Websocket.URL,
			Secret: cfg.Websocket.Secret,
		}, logManager), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
