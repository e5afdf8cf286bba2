package websocket_test

import (
	"github.com/shellfall/engine/v2/internal/storage"
	"github.com/shellfall/engine/v2/internal/storage/websocket"
)

// Compile-time interface check.
var _ storage.Backend = (*websocket.Backend)(nil)
