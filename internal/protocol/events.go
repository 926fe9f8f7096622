// Package protocol defines the event names and payload structures used for
// communication between the chat client and the relay server. Every frame is
// serialized as JSON in a consistent envelope format with an event-name
// discriminator and a deferred-decoded data payload.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Event name constants
// ---------------------------------------------------------------------------

// Client -> Server event names.
const (
	EventUserJoin       = "user_join"
	EventSendMessage    = "send_message"
	EventPrivateMessage = "private_message" // also Server -> Client
	EventTyping         = "typing"
)

// Server -> Client event names.
const (
	EventReceiveMessage = "receive_message"
	EventUserList       = "user_list"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventTypingUsers    = "typing_users"
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope is the outer frame shape: the event name plus the raw JSON data
// payload, kept undecoded so it can be parsed later into the concrete struct
// for that event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------
// Shared record types
// ---------------------------------------------------------------------------

// Message is a single chat message record as relayed by the server. Records
// are immutable once received; the client appends them to its log verbatim.
//
// A non-system record carries Text, Image, or both. A system record (local
// join/leave announcements) carries Text only and has no sender.
type Message struct {
	ID         string `json:"id,omitempty"`         // record id (client-generated for system records)
	Sender     string `json:"sender,omitempty"`     // stable username of the author
	SenderID   string `json:"senderId,omitempty"`   // author's transport id at send time
	Text       string `json:"message,omitempty"`    // message body
	Image      string `json:"image,omitempty"`      // attachment as a data URI
	IsPrivate  bool   `json:"isPrivate,omitempty"`  // private one-to-one message
	ReceiverID string `json:"receiverId,omitempty"` // private recipient id, sender-side only
	Timestamp  string `json:"timestamp"`            // ISO-8601
	System     bool   `json:"system,omitempty"`     // synthetic join/leave announcement
}

// User is one entry of the server's presence snapshot. ID is the transport id
// the relay assigned for the user's current connection and changes whenever
// that user reconnects; Username is the stable human-facing key.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ---------------------------------------------------------------------------
// Client -> Server payload structs
// ---------------------------------------------------------------------------

// UserJoinPayload announces the chosen display name to the relay. It is sent
// once after the initial join and again on every reconnection.
type UserJoinPayload struct {
	Username string `json:"username"`
}

// SendMessagePayload is a message addressed to the global room.
type SendMessagePayload struct {
	Text  string `json:"message,omitempty"`
	Image string `json:"image,omitempty"`
}

// PrivateSendPayload is a message addressed to a single peer by transport id.
type PrivateSendPayload struct {
	To    string `json:"to"`
	Text  string `json:"message,omitempty"`
	Image string `json:"image,omitempty"`
}

// TypingPayload reports whether the local user is currently composing.
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// ---------------------------------------------------------------------------
// Server -> Client payload structs
// ---------------------------------------------------------------------------

// UserJoinedPayload announces that a user joined the chat. The relay sends
// only the username; the client synthesizes the system record locally.
type UserJoinedPayload struct {
	Username string `json:"username"`
}

// UserLeftPayload announces that a user left the chat.
type UserLeftPayload struct {
	Username string `json:"username"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseServerEvent parses raw frame bytes into a typed server event. It
// returns the event name, the decoded payload, and any error encountered.
// An error is returned for unknown or client-only event names; callers are
// expected to log and drop such frames rather than treat them as fatal.
func ParseServerEvent(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse envelope: %w", err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("protocol: missing or empty \"event\" field")
	}

	var (
		payload interface{}
		err     error
	)

	switch env.Event {
	case EventReceiveMessage, EventPrivateMessage:
		var m Message
		err = json.Unmarshal(env.Data, &m)
		payload = m
	case EventUserList:
		var users []User
		err = json.Unmarshal(env.Data, &users)
		payload = users
	case EventUserJoined:
		var p UserJoinedPayload
		err = json.Unmarshal(env.Data, &p)
		payload = p
	case EventUserLeft:
		var p UserLeftPayload
		err = json.Unmarshal(env.Data, &p)
		payload = p
	case EventTypingUsers:
		var names []string
		err = json.Unmarshal(env.Data, &names)
		payload = names
	default:
		return env.Event, nil, fmt.Errorf("protocol: unknown server event: %q", env.Event)
	}

	if err != nil {
		return env.Event, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Event, err)
	}
	return env.Event, payload, nil
}

// NewClientEvent creates a JSON-encoded frame for a client-emitted event.
// The payload should be one of the *Payload structs; it is marshaled into the
// envelope's data field.
func NewClientEvent(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	out, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal envelope: %w", err)
	}
	return out, nil
}
