// Package transport provides the WebSocket event channel between the chat
// client and the relay server. It connects using gobwas/ws, dispatches
// incoming events to registered handlers, and transparently re-dials the
// relay when the connection drops.
//
// The transport owns exactly one physical connection. All inbound events are
// dispatched from a single read-loop goroutine in arrival order, so handlers
// observe events in the order the relay delivered them.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/plpchat/client/internal/protocol"
)

// Defaults mirror the relay's recommended client settings: retry a dropped
// connection every second, giving up after five consecutive failures.
const (
	DefaultReconnectDelay    = 1 * time.Second
	DefaultReconnectAttempts = 5
)

// Handler is the callback signature for one inbound event. It receives the
// full raw frame bytes for flexible decoding (typically via
// protocol.ParseServerEvent). Handlers run on the read-loop goroutine and
// must not block for extended periods.
type Handler func(raw json.RawMessage)

// Config holds the transport settings.
type Config struct {
	URL               string        // relay WebSocket URL
	ReconnectDelay    time.Duration // pause between redial attempts
	ReconnectAttempts int           // consecutive failures before giving up
}

// DefaultConfig returns a Config with the standard reconnect policy for the
// given relay URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectDelay:    DefaultReconnectDelay,
		ReconnectAttempts: DefaultReconnectAttempts,
	}
}

// Transport is the duplex event channel to the relay. It manages the
// WebSocket lifecycle, serializes outbound frames, and routes inbound events
// to registered handlers.
type Transport struct {
	config Config

	writeMu sync.Mutex // serializes outbound frames
	connMu  sync.RWMutex
	conn    net.Conn

	handlers     map[string]Handler
	onConnect    func()
	onDisconnect func()

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Transport for the given config. Handlers and lifecycle
// callbacks must be registered before Dial.
func New(config Config) *Transport {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.ReconnectAttempts <= 0 {
		config.ReconnectAttempts = DefaultReconnectAttempts
	}
	return &Transport{
		config:   config,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// On registers a handler for a specific inbound event name. Only one handler
// per event is supported; registering a second handler for the same event
// replaces the first.
func (t *Transport) On(event string, handler Handler) {
	t.handlers[event] = handler
}

// OnConnect registers a callback invoked after every successful dial,
// including redials. It runs before any inbound event from that connection
// is dispatched, which is what allows the session to re-identify itself
// ahead of other traffic.
func (t *Transport) OnConnect(fn func()) {
	t.onConnect = fn
}

// OnDisconnect registers a callback invoked whenever the connection is lost
// or closed.
func (t *Transport) OnDisconnect(fn func()) {
	t.onDisconnect = fn
}

// Dial opens the connection to the relay and starts the read loop. It
// returns an error only if the initial dial fails; later drops are handled
// by the reconnect loop.
func (t *Transport) Dial(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, t.config.URL)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", t.config.URL, err)
	}

	t.setConn(conn)
	t.connected.Store(true)
	if t.onConnect != nil {
		t.onConnect()
	}

	go t.readLoop()
	return nil
}

// Emit marshals the payload into an event frame and writes it to the relay.
// It returns an error when the transport is disconnected; callers treat a
// failed emit as a dropped intent, not a fatal condition.
func (t *Transport) Emit(event string, payload interface{}) error {
	if !t.connected.Load() {
		return fmt.Errorf("transport: emit %q while disconnected", event)
	}

	data, err := protocol.NewClientEvent(event, payload)
	if err != nil {
		return err
	}

	conn := t.getConn()
	if conn == nil {
		return fmt.Errorf("transport: emit %q while disconnected", event)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(conn, ws.OpText, data); err != nil {
		return fmt.Errorf("transport: write %q: %w", event, err)
	}
	return nil
}

// Connected reports whether the transport currently holds an open
// connection.
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Close stops the read loop and closes the connection. It is safe to call
// multiple times.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.connected.Store(false)
		if conn := t.getConn(); conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// readLoop continuously reads frames from the relay and dispatches them to
// registered handlers. On a read failure it marks the transport
// disconnected and attempts to re-dial; it exits when Close is called or
// the reconnect attempts are exhausted.
func (t *Transport) readLoop() {
	for {
		select {
		case <-t.done:
			return
		default:
		}

		data, err := wsutil.ReadServerText(t.getConn())
		if err != nil {
			t.connected.Store(false)
			select {
			case <-t.done:
				// Intentionally closed; no disconnect callback.
				return
			default:
			}

			if t.onDisconnect != nil {
				t.onDisconnect()
			}

			if !t.reconnect() {
				return
			}
			continue
		}

		t.dispatch(data)
	}
}

// dispatch extracts the event name from the frame and routes the raw bytes
// to the registered handler. Malformed frames and unregistered events are
// logged and dropped, never fatal.
func (t *Transport) dispatch(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[transport] dropping malformed frame: %v", err)
		return
	}

	handler, ok := t.handlers[env.Event]
	if !ok {
		log.Printf("[transport] no handler for event=%q, dropping", env.Event)
		return
	}
	handler(json.RawMessage(data))
}

// reconnect re-dials the relay with a fixed delay between attempts. Returns
// true once a new connection is established, false when the transport was
// closed or the attempt budget is exhausted. The budget applies per outage;
// a successful redial resets it.
func (t *Transport) reconnect() bool {
	for attempt := 1; attempt <= t.config.ReconnectAttempts; attempt++ {
		select {
		case <-t.done:
			return false
		case <-time.After(t.config.ReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn, _, _, err := ws.Dial(ctx, t.config.URL)
		cancel()
		if err != nil {
			log.Printf("[transport] reconnect attempt %d/%d failed: %v",
				attempt, t.config.ReconnectAttempts, err)
			continue
		}

		t.setConn(conn)
		t.connected.Store(true)
		log.Printf("[transport] reconnected after %d attempt(s)", attempt)
		if t.onConnect != nil {
			t.onConnect()
		}
		return true
	}

	log.Printf("[transport] giving up after %d reconnect attempts", t.config.ReconnectAttempts)
	return false
}

func (t *Transport) setConn(conn net.Conn) {
	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()
}

func (t *Transport) getConn() net.Conn {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()
	return conn
}
