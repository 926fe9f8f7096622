package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/plpchat/client/internal/protocol"
)

// ---------------------------------------------------------------------------
// In-process relay stub
// ---------------------------------------------------------------------------

// relayStub is a minimal WebSocket endpoint that records inbound client
// frames and lets tests push frames and kill connections from the server
// side.
type relayStub struct {
	srv     *httptest.Server
	inbound chan []byte

	mu    sync.Mutex
	conns []net.Conn
}

func newRelayStub(t *testing.T) *relayStub {
	t.Helper()
	stub := &relayStub{inbound: make(chan []byte, 16)}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		stub.mu.Lock()
		stub.conns = append(stub.conns, conn)
		stub.mu.Unlock()

		go func() {
			for {
				data, err := wsutil.ReadClientText(conn)
				if err != nil {
					return
				}
				stub.inbound <- data
			}
		}()
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *relayStub) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *relayStub) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *relayStub) latestConn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

// send pushes an event frame to the most recent client connection.
func (s *relayStub) send(t *testing.T, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	conn := s.latestConn()
	if conn == nil {
		t.Fatal("no client connection yet")
	}
	if err := wsutil.WriteServerMessage(conn, ws.OpText, frame); err != nil {
		t.Fatalf("write server frame: %v", err)
	}
}

// dropLatest closes the newest connection from the server side.
func (s *relayStub) dropLatest() {
	if conn := s.latestConn(); conn != nil {
		conn.Close()
	}
}

func (s *relayStub) waitInbound(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-s.inbound:
		return data
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a client frame")
		return nil
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestDialEmitReceive(t *testing.T) {
	stub := newRelayStub(t)

	tr := New(DefaultConfig(stub.url()))
	received := make(chan json.RawMessage, 1)
	tr.On(protocol.EventReceiveMessage, func(raw json.RawMessage) {
		received <- raw
	})

	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	if !tr.Connected() {
		t.Fatal("expected connected after dial")
	}

	if err := tr.Emit(protocol.EventUserJoin, protocol.UserJoinPayload{Username: "alice"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	frame := stub.waitInbound(t)
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("client frame is not an envelope: %v", err)
	}
	if env.Event != protocol.EventUserJoin {
		t.Fatalf("expected %q, got %q", protocol.EventUserJoin, env.Event)
	}

	stub.send(t, protocol.EventReceiveMessage, protocol.Message{
		Sender: "bob", Text: "hello", Timestamp: "2026-09-01T10:00:00Z",
	})

	select {
	case raw := <-received:
		event, payload, err := protocol.ParseServerEvent(raw)
		if err != nil {
			t.Fatalf("parse dispatched frame: %v", err)
		}
		if event != protocol.EventReceiveMessage {
			t.Fatalf("unexpected event %q", event)
		}
		if msg := payload.(protocol.Message); msg.Text != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler never received the frame")
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	stub := newRelayStub(t)

	config := Config{
		URL:               stub.url(),
		ReconnectDelay:    20 * time.Millisecond,
		ReconnectAttempts: 5,
	}
	tr := New(config)

	connects := make(chan struct{}, 4)
	disconnects := make(chan struct{}, 4)
	tr.OnConnect(func() { connects <- struct{}{} })
	tr.OnDisconnect(func() { disconnects <- struct{}{} })

	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()
	waitSignal(t, connects, "initial connect")

	stub.dropLatest()
	waitSignal(t, disconnects, "disconnect callback")
	waitSignal(t, connects, "reconnect")

	if !tr.Connected() {
		t.Fatal("expected connected after redial")
	}
	if stub.connCount() != 2 {
		t.Fatalf("expected 2 server-side connections, got %d", stub.connCount())
	}

	// The re-established connection must be usable for traffic.
	if err := tr.Emit(protocol.EventTyping, protocol.TypingPayload{Typing: true}); err != nil {
		t.Fatalf("emit after reconnect: %v", err)
	}
	stub.waitInbound(t)
}

func TestCloseStopsReconnect(t *testing.T) {
	stub := newRelayStub(t)

	config := Config{
		URL:               stub.url(),
		ReconnectDelay:    20 * time.Millisecond,
		ReconnectAttempts: 5,
	}
	tr := New(config)

	disconnects := make(chan struct{}, 4)
	tr.OnDisconnect(func() { disconnects <- struct{}{} })

	if err := tr.Dial(context.Background()); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if tr.Connected() {
		t.Fatal("expected disconnected after Close")
	}

	// A deliberate close must neither fire the disconnect callback nor
	// trigger redials.
	time.Sleep(150 * time.Millisecond)
	select {
	case <-disconnects:
		t.Fatal("disconnect callback fired for a deliberate Close")
	default:
	}
	if stub.connCount() != 1 {
		t.Fatalf("expected no redial after Close, got %d connections", stub.connCount())
	}
}

func TestEmitWhileDisconnected(t *testing.T) {
	tr := New(DefaultConfig("ws://127.0.0.1:0/ws"))
	if err := tr.Emit(protocol.EventTyping, protocol.TypingPayload{Typing: true}); err == nil {
		t.Fatal("expected an error for emit before dial")
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tr := New(DefaultConfig("ws://127.0.0.1:1/ws"))
	if err := tr.Dial(ctx); err == nil {
		t.Fatal("expected an error dialing an unreachable relay")
	}
}
