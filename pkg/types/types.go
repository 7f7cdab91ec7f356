package types

import (
	"encoding/json"
	"fmt"
)

// Push-channel message types.
const (
	MsgInitialState       = "initial_state"
	MsgModelStatus        = "model_status"
	MsgGenerationStart    = "generation_start"
	MsgGenerationComplete = "generation_complete"
	MsgGenerationError    = "generation_error"
	MsgHeartbeat          = "heartbeat"
	MsgPing               = "ping"
	MsgPong               = "pong"
)

// Envelope is one parsed push-channel frame. Type is the discriminator; Raw
// keeps the whole frame so the consumer can decode the variant it cares about.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// ParseEnvelope decodes the discriminator of a frame. Frames that are not JSON
// objects or have no type are rejected.
func ParseEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

// Decode unmarshals the full frame into v.
func (e Envelope) Decode(v any) error {
	if len(e.Raw) == 0 {
		return fmt.Errorf("decode %s: empty frame", e.Type)
	}
	return json.Unmarshal(e.Raw, v)
}

// ModelStatusMessage is the payload of a model_status frame.
type ModelStatusMessage struct {
	Type     string    `json:"type"`
	ModelID  string    `json:"model_id"`
	State    string    `json:"state"`
	Progress *Progress `json:"progress,omitempty"`
	Error    *string   `json:"error,omitempty"`
}

// GenerationStartMessage is the payload of a generation_start frame.
type GenerationStartMessage struct {
	Type    string `json:"type"`
	Prompt  string `json:"prompt"`
	ModelID string `json:"model_id"`
}

// GenerationCompleteMessage is the payload of a generation_complete frame.
type GenerationCompleteMessage struct {
	Type           string  `json:"type"`
	ImageID        string  `json:"image_id"`
	Prompt         string  `json:"prompt"`
	GenerationTime float64 `json:"generation_time"`
}

// GenerationErrorMessage is the payload of a generation_error frame.
type GenerationErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// PingMessage is sent by the client to keep the channel alive.
type PingMessage struct {
	Type string `json:"type"`
}
