package chat

import (
	"strings"
	"testing"
	"time"
)

func TestValidateOutgoing(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		image   string
		wantErr bool
	}{
		{"text only", "hello", "", false},
		{"image only", "", "data:image/png;base64,abc", false},
		{"text and image", "look", "data:image/png;base64,abc", false},
		{"both empty", "", "", true},
		{"oversized image", "", "data:" + strings.Repeat("A", MaxImageURIBytes+1), true},
		{"too many characters", strings.Repeat("x", MaxTextChars+1), "", true},
		{"invalid utf-8", string([]byte{0xff, 0xfe}), "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOutgoing(tc.text, tc.image)
			if tc.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewSystemRecord(t *testing.T) {
	rec := NewSystemRecord(JoinAnnouncement("bob"))

	if !rec.System {
		t.Error("expected system=true")
	}
	if rec.Sender != "" {
		t.Errorf("system records carry no sender, got %q", rec.Sender)
	}
	if rec.Text != "bob joined the chat" {
		t.Errorf("unexpected announcement: %q", rec.Text)
	}
	if rec.ID == "" {
		t.Error("expected a client-generated record id")
	}
	if _, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
		t.Errorf("timestamp is not RFC 3339: %q", rec.Timestamp)
	}
}

func TestAnnouncements(t *testing.T) {
	if got := LeaveAnnouncement("carol"); got != "carol left the chat" {
		t.Errorf("unexpected leave announcement: %q", got)
	}
}
