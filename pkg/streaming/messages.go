package streaming

import (
	"encoding/json"

	"github.com/shellfall/engine/v2/pkg/fleet"
)

// Message type constants matching the streaming protocol.
const (
	TypeShip       = "ship"
	TypeStartRun   = "start_run"
	TypeEndRun     = "end_run"
	TypeEngagement = "engagement"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload announces a sweep run before its engagements stream in.
type StartRunPayload struct {
	Run *fleet.SweepRun `json:"run"`
}

// EndRunPayload closes a run with its final counters.
type EndRunPayload struct {
	Run *fleet.SweepRun `json:"run"`
}
