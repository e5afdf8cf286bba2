package gormstorage_test

import (
	"github.com/shellfall/engine/v2/internal/storage"
	gormstorage "github.com/shellfall/engine/v2/internal/storage/gorm"
)

// Compile-time interface checks
var (
	_ storage.Backend     = (*gormstorage.Backend)(nil)
	_ storage.FleetLoader = (*gormstorage.Backend)(nil)
)
