package notify

import (
	"sync"
	"time"
)

// MaxRecentAlerts is the number of alerts retained for display.
const MaxRecentAlerts = 5

// Alert is one delivered notification, kept for the status line.
type Alert struct {
	Sender  string
	Summary string
	At      time.Time
}

// Recent stores the last N alerts in memory. It is goroutine-safe and uses
// a fixed-size ring internally; when full, the oldest alert is overwritten.
type Recent struct {
	mu    sync.RWMutex
	items []Alert
	pos   int
	count int
}

// NewRecent creates an empty alert ring.
func NewRecent() *Recent {
	return &Recent{items: make([]Alert, MaxRecentAlerts)}
}

// Add appends an alert, overwriting the oldest when the ring is full.
func (r *Recent) Add(alert Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.pos] = alert
	r.pos = (r.pos + 1) % MaxRecentAlerts
	if r.count < MaxRecentAlerts {
		r.count++
	}
}

// All returns the retained alerts in chronological order (oldest first).
func (r *Recent) All() []Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Alert, r.count)
	start := (r.pos - r.count + MaxRecentAlerts) % MaxRecentAlerts
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(start+i)%MaxRecentAlerts]
	}
	return out
}

// Last returns the most recent alert, if any.
func (r *Recent) Last() (Alert, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return Alert{}, false
	}
	last := (r.pos - 1 + MaxRecentAlerts) % MaxRecentAlerts
	return r.items[last], true
}

// Notify implements Sink so the ring can be chained after a primary sink.
func (r *Recent) Notify(sender, summary string) error {
	r.Add(Alert{Sender: sender, Summary: summary, At: time.Now()})
	return nil
}

// Multi fans an alert out to several sinks; every sink runs even if an
// earlier one fails, and the first error is returned.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(sender, summary string) error {
	var first error
	for _, sink := range m {
		if err := sink.Notify(sender, summary); err != nil && first == nil {
			first = err
		}
	}
	return first
}
