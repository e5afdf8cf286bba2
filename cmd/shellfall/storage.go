package main

import (
	"fmt"

	"github.com/shellfall/engine/v2/internal/config"
	"github.com/shellfall/engine/v2/internal/storage"
)

// initStorage creates and initializes the configured backend. Memory is the
// default and always works; database and websocket backends fail setup when
// their target is unreachable rather than dropping records later.
func initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, LogManager)
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	storageBackend = backend
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

// closeStorage closes the backend and reports any run artifact it exported.
func closeStorage() {
	if storageBackend == nil {
		return
	}
	if err := storageBackend.Close(); err != nil && Logger != nil {
		Logger.Error("Error closing storage backend", "error", err)
	}
	if exp, ok := storageBackend.(storage.Exportable); ok {
		if path := exp.GetExportedFilePath(); path != "" {
			fmt.Println("run written to", path)
		}
	}
	storageBackend = nil
}

// fleetLoader returns the backend's read side when it has one. Streaming
// backends record but cannot list.
func fleetLoader() (storage.FleetLoader, error) {
	loader, ok := storageBackend.(storage.FleetLoader)
	if !ok {
		return nil, fmt.Errorf("the configured storage backend cannot read ships back; use memory, sqlite or postgres")
	}
	return loader, nil
}
