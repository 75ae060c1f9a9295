package linklib

import "encoding/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CommandEnvelope is a tracked command on the wire. The peer must echo
// CommandID back in its response.
type CommandEnvelope struct {
	Type      string         `json:"type"`
	Params    map[string]any `json:"params"`
	CommandID string         `json:"commandId"`
}

// ResponseEnvelope is anything the peer sends back. A missing CommandID
// marks the message as informational; it never touches a pending command.
type ResponseEnvelope struct {
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   string          `json:"message,omitempty"`
	CommandID string          `json:"commandId,omitempty"`
}

// Frame is an untracked command. No correlation id, no response expected.
type Frame struct {
	Clip      string `json:"clip"`
	Emotion   string `json:"emotion"`
	LookAt    string `json:"lookAt"`
	Timestamp int64  `json:"timestamp"`
}
