package chat

import (
	"sync"

	"github.com/plpchat/client/internal/protocol"
)

// Directory is the current mapping of remote participants to display names.
// The relay resends the complete list on every membership change, so the
// directory is replaced wholesale - it holds no delta-merge logic, only
// last-writer-wins replacement. Server-provided order is preserved.
//
// Single-writer rule: only the event-delivery path calls SetAll; every other
// component reads snapshots.
type Directory struct {
	mu    sync.RWMutex
	users []protocol.User
}

// NewDirectory creates an empty presence directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// SetAll replaces the directory contents unconditionally.
func (d *Directory) SetAll(users []protocol.User) {
	snapshot := make([]protocol.User, len(users))
	copy(snapshot, users)

	d.mu.Lock()
	d.users = snapshot
	d.mu.Unlock()
}

// All returns a copy of the current directory in server order.
func (d *Directory) All() []protocol.User {
	d.mu.RLock()
	out := make([]protocol.User, len(d.users))
	copy(out, d.users)
	d.mu.RUnlock()
	return out
}

// Lookup returns the directory entry for the given username, if present.
// Usernames are the stable key; the transport id in the returned entry is
// whatever the user's current connection was assigned.
func (d *Directory) Lookup(username string) (protocol.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Username == username {
			return u, true
		}
	}
	return protocol.User{}, false
}

// Len returns the number of participants currently listed.
func (d *Directory) Len() int {
	d.mu.RLock()
	n := len(d.users)
	d.mu.RUnlock()
	return n
}

// TypingSet is the set of usernames currently composing, refreshed from
// relay broadcasts with the same full-replace discipline as the Directory.
// It has no independent timeout; relay-pushed membership is trusted as is.
type TypingSet struct {
	mu    sync.RWMutex
	names []string
}

// NewTypingSet creates an empty typing set.
func NewTypingSet() *TypingSet {
	return &TypingSet{}
}

// SetAll replaces the set contents unconditionally.
func (t *TypingSet) SetAll(names []string) {
	snapshot := make([]string, len(names))
	copy(snapshot, names)

	t.mu.Lock()
	t.names = snapshot
	t.mu.Unlock()
}

// All returns a copy of the current set in server order.
func (t *TypingSet) All() []string {
	t.mu.RLock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	t.mu.RUnlock()
	return out
}

// Others returns the set minus the given username, for display ("bob is
// typing" should not include the local user's own indicator).
func (t *TypingSet) Others(username string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.names))
	for _, name := range t.names {
		if name != username {
			out = append(out, name)
		}
	}
	return out
}
