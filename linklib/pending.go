package linklib

import (
	"encoding/json"
	"time"
)

type outcome struct {
	result json.RawMessage
	err    error
}

// pendingRequest tracks one in-flight command. Whoever removes it from the
// table owns the single send on done; the channel is buffered so the owner
// never blocks on a caller that already gave up waiting.
type pendingRequest struct {
	id        string
	createdAt time.Time
	done      chan outcome
}

func newPendingRequest(id string) *pendingRequest {
	return &pendingRequest{id: id, createdAt: time.Now(), done: make(chan outcome, 1)}
}
