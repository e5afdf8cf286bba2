package memory_test

import (
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/internal/storage/memory"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*memory.Backend)(nil)

// Verify Backend implements storage.FleetLoader interface
var _ storage.FleetLoader = (*memory.Backend)(nil)

// Verify Backend implements storage.Exportable interface
var _ storage.Exportable = (*memory.Backend)(nil)
