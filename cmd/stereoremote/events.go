package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// IPC requests
// ============================================================================
// Requests are JSON envelopes with a type discriminator:
//
//	{"type": "command", "data": {"command": "track_forward"}}
//	{"type": "status"}
// ============================================================================

// Request is a marker interface for all IPC requests.
type Request interface {
	requestMarker()
}

// CommandRequest asks the daemon to enqueue a logical command.
type CommandRequest struct {
	Command string `json:"command"` // wire name, e.g. "volume_up"
}

func (CommandRequest) requestMarker() {}

// StatusRequest asks for the dispatcher snapshot.
type StatusRequest struct{}

func (StatusRequest) requestMarker() {}

// RequestEnvelope wraps a request with a type discriminator for JSON marshaling
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalRequest deserializes a JSON request envelope into a concrete Request
func UnmarshalRequest(data []byte) (Request, error) {
	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "command":
		var r CommandRequest
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("unmarshal CommandRequest: missing data")
		}
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal CommandRequest: %w", err)
		}
		return r, nil

	case "status":
		return StatusRequest{}, nil

	default:
		return nil, fmt.Errorf("unknown request type: %q", env.Type)
	}
}

// MarshalRequest serializes a Request into a JSON envelope with type discriminator
func MarshalRequest(r Request) ([]byte, error) {
	var env RequestEnvelope

	switch r := r.(type) {
	case CommandRequest:
		env.Type = "command"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal CommandRequest: %w", err)
		}
		env.Data = data

	case StatusRequest:
		env.Type = "status"

	default:
		return nil, fmt.Errorf("unsupported request type: %T", r)
	}

	return json.Marshal(env)
}
