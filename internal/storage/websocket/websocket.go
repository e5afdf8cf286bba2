package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shellfall/engine/v2/internal/logging"
	"github.com/shellfall/engine/v2/pkg/fleet"
	"github.com/shellfall/engine/v2/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams fleet and sweep data over WebSocket to a shellfall relay
// server. It implements storage.Backend but not storage.FleetLoader; the
// relay owns the data once it is acknowledged.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	log := slog.Default()
	if logManager != nil {
		log = logManager.Logger()
	}
	return &Backend{
		conn: newConnection(log),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// SaveShip streams a fetched warship (fire-and-forget).
func (b *Backend) SaveShip(s *fleet.Ship) error {
	return b.sendEnvelope(streaming.TypeShip, s)
}

// StartRun announces a sweep run and waits for the server ack.
func (b *Backend) StartRun(run *fleet.SweepRun) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends the completed run totals and waits for the server ack.
func (b *Backend) EndRun(run *fleet.SweepRun) error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndRun, streaming.EndRunPayload{Run: run})

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = nil
	b.conn.mu.Unlock()

	return err
}

// RecordEngagement streams one evaluated firing solution (fire-and-forget).
func (b *Backend) RecordEngagement(e *fleet.EngagementRecord) error {
	return b.sendEnvelope(streaming.TypeEngagement, e)
}

// GetWriteQueueLength reports how many messages sit in the send buffer.
func (b *Backend) GetWriteQueueLength() int {
	return len(b.conn.sendCh)
}
