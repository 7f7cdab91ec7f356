package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"modelsync/pkg/types"
)

// State is the lifecycle of the push channel.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

type stopper interface{ Stop() bool }

type afterFunc func(d time.Duration, f func()) stopper

func timeAfterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }

// Manager owns at most one WebSocket connection to the backend push channel.
//
// Inbound frames are parsed into envelopes and delivered on Messages in
// arrival order. A close with any code other than the intentional one
// schedules exactly one reconnect after ReconnectInterval, provided the
// owning context is still live. Messages is never closed.
type Manager struct {
	cfg   Config
	log   zerolog.Logger
	after afterFunc
	msgs  chan types.Envelope

	connected atomic.Bool
	writeMu   sync.Mutex

	mu           sync.Mutex
	state        State
	url          string
	owner        context.Context
	stopOwner    func() bool
	conn         *websocket.Conn
	connDone     chan struct{}
	attempt      uint64
	cancelDial   context.CancelFunc
	reconnect    stopper
	reconnectSeq uint64
	lastErr      string
	onConnect    func()
	onDisconnect func()
}

// New returns an idle Manager.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "session").Logger(),
		after: timeAfterFunc,
		msgs:  make(chan types.Envelope, cfg.MessageBuffer),
		state: StateIdle,
	}
}

// Messages delivers parsed inbound envelopes.
func (m *Manager) Messages() <-chan types.Envelope { return m.msgs }

// SetCallbacks replaces the connect/disconnect callbacks. The callbacks in
// effect when an event fires are the ones invoked; swapping them never
// touches the connection.
func (m *Manager) SetCallbacks(onConnect, onDisconnect func()) {
	m.mu.Lock()
	m.onConnect = onConnect
	m.onDisconnect = onDisconnect
	m.mu.Unlock()
}

// Open starts connecting to url. It is a no-op while a connection is open or
// being established. When ctx ends the session closes intentionally and no
// further reconnects are scheduled.
func (m *Manager) Open(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("session: empty url")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(ctx, url)
}

func (m *Manager) openLocked(ctx context.Context, url string) error {
	if m.state == StateConnecting || m.state == StateOpen {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.owner != ctx {
		if m.stopOwner != nil {
			m.stopOwner()
		}
		m.owner = ctx
		m.stopOwner = context.AfterFunc(ctx, func() { m.shutdown("owner done") })
	}
	m.stopReconnectLocked()
	m.url = url
	m.state = StateConnecting
	m.attempt++
	dctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	m.cancelDial = cancel
	go m.connect(dctx, cancel, url, m.attempt)
	return nil
}

// Close closes the connection with the intentional close code and cancels
// any pending reconnect. The session may be reopened later with Open.
func (m *Manager) Close(reason string) {
	m.shutdown(reason)
}

// Send marshals v and writes it as a text frame. It reports false, without
// error, when the channel is not open.
func (m *Manager) Send(v any) bool {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()
	if !open || conn == nil {
		droppedSendsTotal.Inc()
		m.log.Debug().Msg("send dropped: channel not open")
		return false
	}
	data, err := json.Marshal(v)
	if err != nil {
		m.log.Warn().Err(err).Msg("send: marshal failed")
		return false
	}
	return m.write(conn, data)
}

// Connected reports whether the push channel is currently open.
func (m *Manager) Connected() bool { return m.connected.Load() }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent transport error text, cleared on a
// successful connect.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) connect(ctx context.Context, cancel context.CancelFunc, url string, id uint64) {
	connectAttemptsTotal.Inc()
	m.log.Debug().Str("url", url).Uint64("attempt", id).Msg("dialing")
	conn, _, err := m.cfg.Dialer.DialContext(ctx, url, m.cfg.Header)
	cancel()
	if err != nil {
		m.closed(id, nil, websocket.CloseAbnormalClosure, &TransportError{Op: "dial", Err: err})
		return
	}

	m.mu.Lock()
	if id != m.attempt || m.state != StateConnecting {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	done := make(chan struct{})
	m.conn = conn
	m.connDone = done
	m.cancelDial = nil
	m.state = StateOpen
	m.lastErr = ""
	m.connected.Store(true)
	onConnect := m.onConnect
	owner := m.owner
	m.mu.Unlock()

	connectedGauge.Set(1)
	m.log.Info().Str("url", url).Msg("push channel open")
	if onConnect != nil {
		onConnect()
	}
	if m.cfg.PingInterval > 0 {
		go m.pingLoop(conn, done)
	}
	m.readLoop(owner, conn, id)
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn, id uint64) {
	conn.SetReadLimit(maxFrameBytes)
	m.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		m.extendReadDeadline(conn)
		return nil
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code := closeCode(err)
			m.closed(id, conn, code, &TransportError{Op: "read", Code: code, Err: err})
			return
		}
		m.extendReadDeadline(conn)
		env, err := types.ParseEnvelope(data)
		if err != nil {
			parseErrorsTotal.Inc()
			m.log.Warn().Err(&TransportError{Op: "decode", Err: err}).Msg("dropping malformed frame")
			continue
		}
		framesTotal.WithLabelValues(frameLabel(env.Type)).Inc()
		select {
		case m.msgs <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) extendReadDeadline(conn *websocket.Conn) {
	if m.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
	}
}

func (m *Manager) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(m.cfg.PingInterval)
	defer t.Stop()
	ping, _ := json.Marshal(types.PingMessage{Type: types.MsgPing})
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if !m.write(conn, ping) {
				return
			}
		}
	}
}

func (m *Manager) write(conn *websocket.Conn, data []byte) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.log.Warn().Err(err).Msg("write failed")
		return false
	}
	return true
}

// closed handles the end of connection attempt id, whether the dial failed
// or an open socket closed. Stale attempts are ignored.
func (m *Manager) closed(id uint64, conn *websocket.Conn, code int, terr *TransportError) {
	m.mu.Lock()
	if id != m.attempt || m.state == StateClosed {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	wasOpen := m.state == StateOpen
	m.detachLocked()
	m.connected.Store(false)
	onDisconnect := m.onDisconnect
	intentional := code == m.cfg.IntentionalCloseCode
	if intentional {
		m.state = StateClosed
		closesTotal.WithLabelValues("intentional").Inc()
	} else {
		m.state = StateIdle
		m.lastErr = terr.Error()
		closesTotal.WithLabelValues("abnormal").Inc()
		if m.owner != nil && m.owner.Err() == nil {
			m.scheduleReconnectLocked()
		}
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	connectedGauge.Set(0)
	if intentional {
		m.log.Info().Int("code", code).Msg("push channel closed")
	} else {
		m.log.Warn().Err(terr).Dur("retry_in", m.cfg.ReconnectInterval).Msg("push channel lost")
	}
	if wasOpen && onDisconnect != nil {
		onDisconnect()
	}
}

// shutdown closes intentionally: pending reconnects are cancelled and any
// in-flight dial is abandoned.
func (m *Manager) shutdown(reason string) {
	m.mu.Lock()
	if m.state == StateClosed || (m.state == StateIdle && m.reconnect == nil) {
		m.state = StateClosed
		m.mu.Unlock()
		return
	}
	m.stopReconnectLocked()
	wasOpen := m.state == StateOpen
	conn := m.conn
	m.detachLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.attempt++
	m.state = StateClosed
	m.connected.Store(false)
	onDisconnect := m.onDisconnect
	m.mu.Unlock()

	if conn != nil {
		m.writeMu.Lock()
		msg := websocket.FormatCloseMessage(m.cfg.IntentionalCloseCode, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.cfg.WriteTimeout))
		m.writeMu.Unlock()
		_ = conn.Close()
	}
	connectedGauge.Set(0)
	closesTotal.WithLabelValues("intentional").Inc()
	m.log.Info().Str("reason", reason).Msg("push channel closed")
	if wasOpen && onDisconnect != nil {
		onDisconnect()
	}
}

func (m *Manager) detachLocked() {
	m.conn = nil
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
}

// scheduleReconnectLocked arms the single reconnect timer. A timer that was
// stopped or superseded does nothing when it fires.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnect != nil {
		return
	}
	m.reconnectSeq++
	seq := m.reconnectSeq
	owner, url := m.owner, m.url
	m.reconnect = m.after(m.cfg.ReconnectInterval, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if seq != m.reconnectSeq || m.reconnect == nil {
			return
		}
		m.reconnect = nil
		if m.state != StateIdle || owner.Err() != nil {
			return
		}
		if err := m.openLocked(owner, url); err != nil {
			m.log.Debug().Err(err).Msg("reconnect skipped")
		}
	})
	reconnectsScheduledTotal.Inc()
}

func (m *Manager) stopReconnectLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.reconnectSeq++
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}

func (s State) String() string { return string(s) }
