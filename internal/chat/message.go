// Package chat holds the client-side chat state: the append-only message
// log, the presence directory, the typing set, and the room projection
// rules. All state here is process-local and lives for the session only.
package chat

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/plpchat/client/internal/protocol"
)

const (
	// MaxImageBytes caps the raw size of an attachment file. Oversized
	// attachments are rejected locally before any frame is emitted.
	MaxImageBytes = 1_000_000

	// MaxImageURIBytes caps the encoded data URI, sized for a MaxImageBytes
	// file after base64 expansion plus the URI header.
	MaxImageURIBytes = MaxImageBytes/3*4 + 64

	// MaxTextChars caps the character count of a message body.
	MaxTextChars = 2000
)

// ValidateOutgoing checks that a send intent meets content requirements.
// A send needs text, an image, or both.
func ValidateOutgoing(text, image string) error {
	if text == "" && image == "" {
		return fmt.Errorf("chat: message is empty")
	}
	if len(image) > MaxImageURIBytes {
		return fmt.Errorf("chat: attachment exceeds %d byte limit", MaxImageBytes)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("chat: message exceeds %d character limit", MaxTextChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("chat: message contains invalid UTF-8")
	}
	return nil
}

// NewSystemRecord synthesizes a join/leave announcement. The relay supplies
// only the username for these events, so the timestamp is client-generated
// and the record carries no sender.
func NewSystemRecord(text string) protocol.Message {
	return protocol.Message{
		ID:        newRecordID(),
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		System:    true,
	}
}

// JoinAnnouncement returns the system record body for a user joining.
func JoinAnnouncement(username string) string {
	return username + " joined the chat"
}

// LeaveAnnouncement returns the system record body for a user leaving.
func LeaveAnnouncement(username string) string {
	return username + " left the chat"
}

// newRecordID returns a unique id for locally synthesized records.
func newRecordID() string {
	return uuid.NewString()
}
