package chat

import (
	"fmt"
	"testing"

	"github.com/plpchat/client/internal/protocol"
)

func record(sender, text string) protocol.Message {
	return protocol.Message{
		Sender:    sender,
		Text:      text,
		Timestamp: "2026-09-01T10:00:00Z",
	}
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	s := NewStore()
	for i := 1; i <= 4; i++ {
		s.Append(record("bob", fmt.Sprintf("msg-%d", i)))
	}

	all := s.All()
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	for i, msg := range all {
		expected := fmt.Sprintf("msg-%d", i+1)
		if msg.Text != expected {
			t.Errorf("index %d: expected %q, got %q", i, expected, msg.Text)
		}
	}
}

func TestProjectFiltersInOrder(t *testing.T) {
	s := NewStore()
	s.Append(record("bob", "one"))
	s.Append(record("carol", "two"))
	s.Append(record("bob", "three"))

	var got []string
	for msg := range s.Project(func(m protocol.Message) bool { return m.Sender == "bob" }) {
		got = append(got, msg.Text)
	}

	if len(got) != 2 || got[0] != "one" || got[1] != "three" {
		t.Errorf("unexpected projection: %v", got)
	}
}

// A projection is restartable: ranging it twice yields the same records, and
// a ranging after an append observes the new record.
func TestProjectIsRestartable(t *testing.T) {
	s := NewStore()
	s.Append(record("bob", "one"))

	seq := s.Project(func(protocol.Message) bool { return true })

	count := 0
	for range seq {
		count++
	}
	if count != 1 {
		t.Fatalf("first pass: expected 1 record, got %d", count)
	}

	s.Append(record("bob", "two"))

	count = 0
	for range seq {
		count++
	}
	if count != 2 {
		t.Fatalf("second pass: expected 2 records, got %d", count)
	}
}

func TestProjectStopsEarly(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.Append(record("bob", "x"))
	}

	count := 0
	for range s.Project(func(protocol.Message) bool { return true }) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("expected early stop at 3, got %d", count)
	}
}

func TestAllReturnsACopy(t *testing.T) {
	s := NewStore()
	s.Append(record("bob", "original"))

	snapshot := s.All()
	snapshot[0].Text = "mutated"

	if s.All()[0].Text != "original" {
		t.Error("mutating a snapshot must not affect the store")
	}
}
