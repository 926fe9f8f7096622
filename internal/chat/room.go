package chat

import (
	"iter"
	"strings"

	"github.com/plpchat/client/internal/protocol"
)

// Room selection is either the global room (nil peer) or a one-to-one thread
// with a presence entry captured at selection time. The captured entry is a
// snapshot, not a live reference; Outbound re-resolves the peer's transport
// id from the directory on every send so that a peer reconnect does not
// leave outgoing messages addressed to a dead id.

// InRoom reports whether a record belongs to the room denoted by peer, for
// the local user self.
//
// The private-thread rule is deliberately asymmetric: outgoing messages
// match on the receiver id recorded at send time (the peer's id is only
// known to the sender), while incoming messages match on the peer's stable
// username. Global and private memberships are mutually exclusive.
func InRoom(msg protocol.Message, peer *protocol.User, self string) bool {
	if peer == nil {
		return !msg.IsPrivate
	}
	mine := msg.Sender == self && msg.ReceiverID == peer.ID
	theirs := msg.Sender == peer.Username && msg.IsPrivate
	return mine || theirs
}

// MatchesSearch reports whether a record's body contains the query,
// case-insensitively. An empty (or all-whitespace) query matches every
// record; records without a text body never match a non-empty query.
func MatchesSearch(msg protocol.Message, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	if msg.Text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(msg.Text), strings.ToLower(query))
}

// View projects the store into the renderable sequence for the given room
// selection and search query. Room scoping is applied before the search
// predicate, so a search can never leak records across rooms.
func View(store *Store, peer *protocol.User, self, query string) iter.Seq[protocol.Message] {
	return store.Project(func(msg protocol.Message) bool {
		return InRoom(msg, peer, self) && MatchesSearch(msg, query)
	})
}

// Outbound shapes a send intent into the wire event for the given room
// selection. For a private thread the peer's transport id is re-resolved
// from the directory by username, falling back to the id captured at
// selection time if the peer has dropped out of the directory.
//
// No local append happens here: the record enters the store only when the
// relay echoes it back, which keeps the log in server-observed order and
// rules out duplicate local copies.
func Outbound(text, image string, peer *protocol.User, dir *Directory) (string, interface{}) {
	if peer == nil {
		return protocol.EventSendMessage, protocol.SendMessagePayload{Text: text, Image: image}
	}

	to := peer.ID
	if dir != nil {
		if current, ok := dir.Lookup(peer.Username); ok {
			to = current.ID
		}
	}
	return protocol.EventPrivateMessage, protocol.PrivateSendPayload{To: to, Text: text, Image: image}
}
