// Package notify implements the notification side of message delivery: the
// trigger rule for inbound records, a terminal-bell sink, and a small ring
// of recent alerts for the status line.
//
// Sink failures are fully local - they are swallowed and never propagate
// into chat state or affect message delivery.
package notify

import (
	"fmt"
	"io"
	"log"

	"github.com/plpchat/client/internal/protocol"
)

// privateSummary is the privacy-preserving placeholder used for private
// messages; the body is never echoed into a notification.
const privateSummary = "Sent you a private message"

// Sink receives an alert for an inbound message not authored locally.
// Implementations must be safe to call from the event-delivery goroutine
// and should fail quietly.
type Sink interface {
	Notify(sender, summary string) error
}

// ShouldNotify reports whether an inbound record triggers the sink: the
// record must be a real message (not a synthetic announcement) authored by
// someone other than the local user. Authorship is keyed on the stable
// username - the relay-assigned transport id of the local connection is not
// surfaced to this client, and usernames are the stable identity anyway.
func ShouldNotify(msg protocol.Message, localUsername string) bool {
	if msg.System {
		return false
	}
	return msg.Sender != "" && msg.Sender != localUsername
}

// Summary returns the alert text for a record: the body for room messages
// (or an image placeholder when there is no body), and a fixed placeholder
// for private messages so the body is not echoed outside the thread.
func Summary(msg protocol.Message) string {
	if msg.IsPrivate {
		return privateSummary
	}
	if msg.Text == "" {
		return "Sent you an image"
	}
	return msg.Text
}

// Dispatch applies the trigger rule and, when it fires, feeds the sink.
// Sink errors are logged and dropped.
func Dispatch(sink Sink, msg protocol.Message, localUsername string) {
	if sink == nil || !ShouldNotify(msg, localUsername) {
		return
	}
	if err := sink.Notify(msg.Sender, Summary(msg)); err != nil {
		log.Printf("[notify] sink error (ignored): %v", err)
	}
}

// Bell is a Sink that rings the terminal bell on the given writer.
type Bell struct {
	Out io.Writer
}

// Notify writes the BEL control character. Write errors surface to Dispatch
// where they are swallowed.
func (b *Bell) Notify(sender, summary string) error {
	if b.Out == nil {
		return nil
	}
	if _, err := fmt.Fprint(b.Out, "\a"); err != nil {
		return fmt.Errorf("notify: bell: %w", err)
	}
	return nil
}
