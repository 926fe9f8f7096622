// Package client implements the client-side synchronization core: the
// connection lifecycle state machine, the identity context, and the
// reconciliation of inbound relay events into the chat state stores.
//
// All mutation happens on delivery of a transport event or a local user
// intent, processed to completion before the next one; the rendering shell
// only ever receives copied snapshots.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/plpchat/client/internal/chat"
	"github.com/plpchat/client/internal/metrics"
	"github.com/plpchat/client/internal/notify"
	"github.com/plpchat/client/internal/protocol"
	"github.com/plpchat/client/internal/ratelimit"
	"github.com/plpchat/client/internal/transport"
)

// Connectivity states for the transport-level state machine. Connectivity is
// independent of the joined flag: a dropped-and-restored connection must
// re-submit the identity before the relay will route events correctly.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// Transport is the duplex event channel the session binds to. It is
// satisfied by *transport.Transport; tests substitute an in-memory fake.
type Transport interface {
	On(event string, handler transport.Handler)
	OnConnect(fn func())
	OnDisconnect(fn func())
	Dial(ctx context.Context) error
	Emit(event string, payload interface{}) error
	Close() error
}

// Session owns the chat client's state and its event bindings. It is safe
// for concurrent use by the transport read loop and the rendering shell.
type Session struct {
	transport Transport
	store     *chat.Store
	presence  *chat.Directory
	typing    *chat.TypingSet
	sink      notify.Sink
	limiter   *ratelimit.Limiter

	mu            sync.RWMutex
	state         string
	username      string // identity, fixed once Join succeeds
	everConnected bool
	selection     *protocol.User // nil = global room
	composing     bool           // last typing state emitted

	onChange  func() // rendering shell invalidation, may be nil
	closeOnce sync.Once
}

// New creates a Session bound to the given transport and notification sink.
// All event handlers and lifecycle callbacks are registered here, before the
// transport dials, and stay registered until Close - the subscription's
// lifetime is the session's lifetime.
func New(t Transport, sink notify.Sink) *Session {
	s := &Session{
		transport: t,
		store:     chat.NewStore(),
		presence:  chat.NewDirectory(),
		typing:    chat.NewTypingSet(),
		sink:      sink,
		limiter:   ratelimit.NewLimiter(),
		state:     StateDisconnected,
	}

	t.OnConnect(s.handleConnect)
	t.OnDisconnect(s.handleDisconnect)
	t.On(protocol.EventReceiveMessage, s.handleMessage)
	t.On(protocol.EventPrivateMessage, s.handleMessage)
	t.On(protocol.EventUserList, s.handleUserList)
	t.On(protocol.EventUserJoined, s.handleUserJoined)
	t.On(protocol.EventUserLeft, s.handleUserLeft)
	t.On(protocol.EventTypingUsers, s.handleTypingUsers)

	return s
}

// OnChange registers a callback invoked after every state mutation, for the
// rendering shell to schedule a redraw. It must be set before Join.
func (s *Session) OnChange(fn func()) {
	s.onChange = fn
}

// ---------------------------------------------------------------------------
// Intents
// ---------------------------------------------------------------------------

// Join establishes the identity and opens the connection. The username is
// fixed for the process lifetime once set. Join is idempotent while a
// connection attempt is already in flight.
func (s *Session) Join(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("client: username must not be empty")
	}

	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	if s.username == "" {
		s.username = username
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.changed()

	if err := s.transport.Dial(ctx); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		s.changed()
		return err
	}
	return nil
}

// Send routes a message intent to the room currently selected: a
// private_message frame addressed to the selected peer, or a send_message
// frame for the global room. No local append happens - the record enters
// the store when the relay echoes it back.
func (s *Session) Send(text, image string) error {
	if err := chat.ValidateOutgoing(text, image); err != nil {
		return err
	}

	s.mu.RLock()
	peer := s.selection
	s.mu.RUnlock()

	event, payload := chat.Outbound(text, image, peer, s.presence)
	if err := s.transport.Emit(event, payload); err != nil {
		return err
	}
	metrics.EventsSent.WithLabelValues(event).Inc()

	// Sending clears the composition field, so the typing indicator drops.
	s.SetComposing(false)
	return nil
}

// Select switches the current room to a private thread with the given peer,
// capturing a snapshot of the presence entry. Passing nil selects the
// global room.
func (s *Session) Select(peer *protocol.User) {
	s.mu.Lock()
	if peer == nil {
		s.selection = nil
	} else {
		captured := *peer
		s.selection = &captured
	}
	s.mu.Unlock()
	s.changed()
}

// SetComposing reports local composition activity to the relay. State
// transitions (empty <-> non-empty) always go out; repeated same-state
// reports are throttled so per-keystroke callers do not flood the relay.
// Emission failures while disconnected are dropped.
func (s *Session) SetComposing(active bool) {
	s.mu.Lock()
	transition := s.composing != active
	s.composing = active
	s.mu.Unlock()

	if !transition && !s.limiter.Allow("typing", ratelimit.RuleTyping) {
		return
	}
	if err := s.transport.Emit(protocol.EventTyping, protocol.TypingPayload{Typing: active}); err != nil {
		return
	}
	metrics.EventsSent.WithLabelValues(protocol.EventTyping).Inc()
}

// Disconnect closes the transport. Derived state (messages, presence,
// typing) is retained as last-known values so the shell can keep rendering.
func (s *Session) Disconnect() {
	s.transport.Close()
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	s.changed()
}

// Close tears the session down, releasing the transport and its event
// subscriptions. Safe to call multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.transport.Close()
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
	})
	return err
}

// ---------------------------------------------------------------------------
// Read-only accessors for the rendering shell
// ---------------------------------------------------------------------------

// State returns the connectivity state.
func (s *Session) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Username returns the local identity, or an empty string before Join.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Selection returns a copy of the selected peer, or nil for the global room.
func (s *Session) Selection() *protocol.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return nil
	}
	captured := *s.selection
	return &captured
}

// Users returns a snapshot of the presence directory in server order.
func (s *Session) Users() []protocol.User {
	return s.presence.All()
}

// TypingUsers returns the participants currently composing, excluding the
// local user.
func (s *Session) TypingUsers() []string {
	return s.typing.Others(s.Username())
}

// Messages returns the renderable projection for the current room selection
// and search query, in arrival order.
func (s *Session) Messages(query string) []protocol.Message {
	s.mu.RLock()
	peer := s.selection
	username := s.username
	s.mu.RUnlock()

	var out []protocol.Message
	for msg := range chat.View(s.store, peer, username, query) {
		out = append(out, msg)
	}
	return out
}

// Store exposes the message log for test assertions and diagnostics.
func (s *Session) Store() *chat.Store {
	return s.store
}

// ---------------------------------------------------------------------------
// Transport lifecycle handlers
// ---------------------------------------------------------------------------

// handleConnect runs on every successful (re)open, before any inbound event
// from that connection. Re-identification is the critical correctness rule:
// without re-emitting user_join the relay treats this connection as
// anonymous and room/typing routing silently breaks.
func (s *Session) handleConnect() {
	s.mu.Lock()
	s.state = StateConnected
	username := s.username
	reconnected := s.everConnected
	s.everConnected = true
	s.mu.Unlock()

	metrics.Connected.Set(1)
	if reconnected {
		metrics.Reconnects.Inc()
	}

	if username != "" {
		if err := s.transport.Emit(protocol.EventUserJoin, protocol.UserJoinPayload{Username: username}); err != nil {
			log.Printf("[session] re-identification failed: %v", err)
		} else {
			metrics.EventsSent.WithLabelValues(protocol.EventUserJoin).Inc()
		}
	}
	s.changed()
}

// handleDisconnect marks the degraded state. Nothing is cleared: presence,
// typing, and messages stay visible as last-known values until the
// transport recovers.
func (s *Session) handleDisconnect() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()

	metrics.Connected.Set(0)
	s.changed()
}

// ---------------------------------------------------------------------------
// Inbound event handlers
// ---------------------------------------------------------------------------

func (s *Session) handleMessage(raw json.RawMessage) {
	event, payload, err := protocol.ParseServerEvent(raw)
	if err != nil {
		log.Printf("[session] dropping message event: %v", err)
		return
	}
	msg, ok := payload.(protocol.Message)
	if !ok {
		return
	}

	metrics.EventsReceived.WithLabelValues(event).Inc()
	s.store.Append(msg)
	metrics.MessagesStored.Set(float64(s.store.Len()))

	if notify.ShouldNotify(msg, s.Username()) {
		metrics.Notifications.Inc()
	}
	notify.Dispatch(s.sink, msg, s.Username())
	s.changed()
}

func (s *Session) handleUserList(raw json.RawMessage) {
	_, payload, err := protocol.ParseServerEvent(raw)
	if err != nil {
		log.Printf("[session] dropping user_list event: %v", err)
		return
	}
	users, ok := payload.([]protocol.User)
	if !ok {
		return
	}

	metrics.EventsReceived.WithLabelValues(protocol.EventUserList).Inc()
	s.presence.SetAll(users)
	metrics.PresenceUsers.Set(float64(len(users)))
	s.changed()
}

func (s *Session) handleUserJoined(raw json.RawMessage) {
	_, payload, err := protocol.ParseServerEvent(raw)
	if err != nil {
		log.Printf("[session] dropping user_joined event: %v", err)
		return
	}
	p, ok := payload.(protocol.UserJoinedPayload)
	if !ok || p.Username == "" {
		return
	}

	metrics.EventsReceived.WithLabelValues(protocol.EventUserJoined).Inc()
	s.store.Append(chat.NewSystemRecord(chat.JoinAnnouncement(p.Username)))
	metrics.MessagesStored.Set(float64(s.store.Len()))
	s.changed()
}

func (s *Session) handleUserLeft(raw json.RawMessage) {
	_, payload, err := protocol.ParseServerEvent(raw)
	if err != nil {
		log.Printf("[session] dropping user_left event: %v", err)
		return
	}
	p, ok := payload.(protocol.UserLeftPayload)
	if !ok || p.Username == "" {
		return
	}

	metrics.EventsReceived.WithLabelValues(protocol.EventUserLeft).Inc()
	s.store.Append(chat.NewSystemRecord(chat.LeaveAnnouncement(p.Username)))
	metrics.MessagesStored.Set(float64(s.store.Len()))
	s.changed()
}

func (s *Session) handleTypingUsers(raw json.RawMessage) {
	_, payload, err := protocol.ParseServerEvent(raw)
	if err != nil {
		log.Printf("[session] dropping typing_users event: %v", err)
		return
	}
	names, ok := payload.([]string)
	if !ok {
		return
	}

	metrics.EventsReceived.WithLabelValues(protocol.EventTypingUsers).Inc()
	s.typing.SetAll(names)
	s.changed()
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
