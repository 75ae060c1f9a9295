package linklib

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/lithdew/bytesutil"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// RetryPolicy bounds connect attempts and per-command waits. Immutable
// after construction.
type RetryPolicy struct {
	MaxRetries     int           // retries after the first attempt
	RetryDelay     time.Duration // wait between attempts
	CommandTimeout time.Duration // per-command and per-handshake bound
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		CommandTimeout: 10 * time.Second,
	}
}

// Status is a read-only snapshot of the link.
type Status struct {
	Connected       bool   `json:"connected"`
	URL             string `json:"url"`
	PendingCommands int    `json:"pendingCommands"`
}

// Link owns the socket to the renderer: one fixed peer, at most one
// connection at a time, any number of outstanding commands on it.
//
// Connect is explicit and there is no automatic reconnect on close; the
// next Request or Fire after a drop redials lazily. Losing the socket
// fails every outstanding command with ErrConnectionLost; there is no
// per-command cancellation.
type Link struct {
	url    string
	policy RetryPolicy
	log    *zap.Logger

	connectMu sync.Mutex // dial attempts are sequential, never concurrent

	mu    sync.Mutex // protects state, conn and the pending table
	state State
	conn  *websocket.Conn
	reqs  map[string]*pendingRequest

	writeMu sync.Mutex // the websocket allows a single writer

	wg sync.WaitGroup // read loops
}

func NewLink(url string, policy RetryPolicy, log *zap.Logger) *Link {
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{
		url:    url,
		policy: policy,
		log:    log,
		reqs:   make(map[string]*pendingRequest),
	}
}

func (l *Link) URL() string { return l.url }

func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Connected:       l.state == StateOpen,
		URL:             l.url,
		PendingCommands: len(l.reqs),
	}
}

// Connect establishes the socket. A no-op when the link is already open.
// Each attempt is bounded by the handshake timeout; attempts beyond the
// first wait out the configured delay. After MaxRetries+1 failed attempts
// the whole operation fails with ErrConnectionFailed wrapping the last
// underlying cause.
func (l *Link) Connect() error {
	l.connectMu.Lock()
	defer l.connectMu.Unlock()

	l.mu.Lock()
	if l.state == StateOpen {
		l.mu.Unlock()
		return nil
	}
	l.state = StateConnecting
	l.mu.Unlock()

	b := &backoff.Backoff{Min: l.policy.RetryDelay, Max: l.policy.RetryDelay, Factor: 1}
	dialer := websocket.Dialer{HandshakeTimeout: l.policy.CommandTimeout}

	var lastErr error
	for attempt := 0; attempt <= l.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(b.Duration())
		}

		conn, resp, err := dialer.Dial(l.url, nil)
		if err != nil {
			if resp != nil {
				_ = resp.Body.Close()
			}
			lastErr = err
			l.log.Warn("dial failed",
				zap.String("url", l.url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		l.open(conn)
		return nil
	}

	l.mu.Lock()
	l.state = StateDisconnected
	l.mu.Unlock()

	return fmt.Errorf("%w: %d attempts: %w", ErrConnectionFailed, l.policy.MaxRetries+1, lastErr)
}

func (l *Link) open(conn *websocket.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.state = StateOpen
	l.mu.Unlock()

	l.wg.Add(1)
	go l.readLoop(conn)

	// Liveness probe. Informational, the peer is free to ignore it.
	if err := l.write([]byte(`{"type":"ping"}`)); err != nil {
		l.log.Debug("liveness probe not sent", zap.Error(err))
	}

	l.log.Info("link open", zap.String("url", l.url))
}

// Request dispatches one tracked command and waits for the peer's reply,
// the per-command timeout, or loss of the link, whichever settles first.
// Redials first when the link is not open. Concurrent calls each get their
// own correlation id and resolve independently, in whatever order the peer
// answers.
func (l *Link) Request(kind string, params map[string]any) (json.RawMessage, error) {
	if kind == "" {
		return nil, errors.New("command kind must not be empty")
	}
	if err := l.Connect(); err != nil {
		return nil, err
	}

	pr, err := l.register()
	if err != nil {
		return nil, err
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	env := CommandEnvelope{Type: kind, Params: params, CommandID: pr.id}
	if err := json.NewEncoder(bb).Encode(env); err != nil {
		l.take(pr.id)
		return nil, fmt.Errorf("encode command: %w", err)
	}

	if err := l.write(bb.B); err != nil {
		if p := l.take(pr.id); p != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		out := <-pr.done // teardown already owned the entry
		return out.result, out.err
	}

	timer := timerPool.acquire(l.policy.CommandTimeout)
	defer timerPool.release(timer)

	select {
	case out := <-pr.done:
		return out.result, out.err
	case <-timer.C:
		if p := l.take(pr.id); p != nil {
			l.log.Debug("command timed out",
				zap.String("commandId", p.id),
				zap.Duration("age", time.Since(p.createdAt)),
			)
			return nil, fmt.Errorf("%w: no response within %v", ErrTimeout, l.policy.CommandTimeout)
		}
		out := <-pr.done // a response or close won the race
		return out.result, out.err
	}
}

// Fire writes one untracked frame. Redials like Request but registers
// nothing and expects nothing back.
func (l *Link) Fire(frame Frame) error {
	if err := l.Connect(); err != nil {
		return err
	}
	if frame.Timestamp == 0 {
		frame.Timestamp = time.Now().UnixMilli()
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	if err := json.NewEncoder(bb).Encode(frame); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := l.write(bb.B); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

// Disconnect fails every outstanding command with ErrConnectionLost,
// closes the socket gracefully and leaves the link disconnected.
// Idempotent.
func (l *Link) Disconnect() {
	l.teardown(nil, nil)
	l.wg.Wait()
}

func (l *Link) register() (*pendingRequest, error) {
	pr := newPendingRequest(uuid.NewString())

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateOpen {
		return nil, ErrConnectionLost
	}
	l.reqs[pr.id] = pr
	return pr, nil
}

// take removes one entry from the pending table. The caller that gets a
// non-nil entry owns its resolution.
func (l *Link) take(id string) *pendingRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	pr, ok := l.reqs[id]
	if !ok {
		return nil
	}
	delete(l.reqs, id)
	return pr
}

func (l *Link) write(data []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrConnectionLost
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (l *Link) readLoop(conn *websocket.Conn) {
	defer l.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			l.teardown(conn, err)
			return
		}
		l.dispatch(raw)
	}
}

// dispatch routes one incoming payload. Parse failures and messages
// without a correlation id are logged and discarded; they never resolve,
// reject or otherwise touch a pending command.
func (l *Link) dispatch(raw []byte) {
	var res ResponseEnvelope
	if err := json.Unmarshal(raw, &res); err != nil {
		l.log.Warn("malformed message discarded",
			zap.String("payload", bytesutil.String(raw)),
			zap.Error(err),
		)
		return
	}

	if res.CommandID == "" {
		l.log.Debug("informational message", zap.String("payload", bytesutil.String(raw)))
		return
	}

	pr := l.take(res.CommandID)
	if pr == nil {
		l.log.Debug("response for unknown command discarded", zap.String("commandId", res.CommandID))
		return
	}

	if res.Status == StatusSuccess {
		pr.done <- outcome{result: res.Result}
		return
	}
	pr.done <- outcome{err: &RemoteError{Message: res.Message}}
}

// teardown is the single close path. Both a caller-initiated Disconnect
// (conn == nil, cause == nil) and a socket-initiated close funnel through
// here and end in the same state: table empty, socket released,
// StateDisconnected. The epoch check makes a stale read loop's teardown a
// no-op once a newer connection exists.
func (l *Link) teardown(conn *websocket.Conn, cause error) {
	l.mu.Lock()
	if l.conn == nil || (conn != nil && l.conn != conn) {
		l.mu.Unlock()
		return
	}
	c := l.conn
	l.conn = nil
	orphaned := l.reqs
	l.reqs = make(map[string]*pendingRequest)
	l.state = StateClosing
	l.mu.Unlock()

	for _, pr := range orphaned {
		pr.done <- outcome{err: ErrConnectionLost}
	}

	if cause == nil {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.WriteControl(websocket.CloseMessage, msg, deadline)
	}
	_ = c.Close()

	// A Connect may have raced in while the table drained; only settle to
	// Disconnected if nothing newer took over.
	l.mu.Lock()
	if l.conn == nil && l.state == StateClosing {
		l.state = StateDisconnected
	}
	l.mu.Unlock()

	if cause != nil {
		l.log.Info("link closed by peer", zap.Int("orphaned", len(orphaned)), zap.Error(cause))
	} else {
		l.log.Info("link closed", zap.Int("orphaned", len(orphaned)))
	}
}
