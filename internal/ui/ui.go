// Package ui is the terminal rendering shell for the chat client. It is a
// pure consumer of the session core: every frame reads a snapshot of state
// and every key press dispatches an intent. No chat rules live here.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/plpchat/client/internal/client"
	"github.com/plpchat/client/internal/protocol"
)

// RefreshMsg is sent into the program whenever the session state changed and
// the view should be redrawn.
type RefreshMsg struct{}

// Model is the Bubble Tea model for the chat shell.
type Model struct {
	session *client.Session

	input  textinput.Model
	search textinput.Model

	searching bool
	roomIndex int // 0 = global, n>0 = users[n-1]
	pending   string // staged attachment data URI, sent with the next message
	status    string // transient status / error line

	width  int
	height int
}

// New creates the shell bound to a joined session.
func New(session *client.Session) Model {
	input := textinput.New()
	input.Placeholder = "Type a message (/image <path> to attach)"
	input.CharLimit = 0
	input.Focus()

	search := textinput.New()
	search.Placeholder = "Search messages"

	return Model{
		session: session,
		input:   input,
		search:  search,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshMsg:
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlF:
		m.searching = !m.searching
		if m.searching {
			m.input.Blur()
			m.search.Focus()
		} else {
			m.search.Blur()
			m.input.Focus()
		}
		return m, nil

	case tea.KeyEsc:
		if m.searching {
			m.searching = false
			m.search.SetValue("")
			m.search.Blur()
			m.input.Focus()
		}
		return m, nil

	case tea.KeyCtrlP:
		return m.cycleRoom(-1), nil

	case tea.KeyCtrlN:
		return m.cycleRoom(1), nil

	case tea.KeyEnter:
		if m.searching {
			return m, nil
		}
		return m.submit(), nil
	}

	var cmd tea.Cmd
	if m.searching {
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	m.input, cmd = m.input.Update(msg)
	// Composition state follows the input field: non-empty means typing.
	m.session.SetComposing(strings.TrimSpace(m.input.Value()) != "")
	return m, cmd
}

// cycleRoom moves the room selection across [global, users...] and dispatches
// the select intent. The index is clamped against the latest presence
// snapshot so a shrunken user list cannot leave a dangling selection.
func (m Model) cycleRoom(delta int) Model {
	users := m.peers()
	total := 1 + len(users)

	m.roomIndex = (m.roomIndex + delta + total) % total
	if m.roomIndex == 0 {
		m.session.Select(nil)
	} else {
		peer := users[m.roomIndex-1]
		m.session.Select(&peer)
	}
	return m
}

// peers returns the presence list minus the local user, in server order.
func (m Model) peers() []protocol.User {
	self := m.session.Username()
	var out []protocol.User
	for _, u := range m.session.Users() {
		if u.Username != self {
			out = append(out, u)
		}
	}
	return out
}

// submit dispatches the send intent for the composed text plus any staged
// attachment. Validation failures surface on the status line; the fields
// clear only on success so a rejected message is not lost.
func (m Model) submit() Model {
	text := strings.TrimSpace(m.input.Value())

	if path, ok := strings.CutPrefix(text, "/image "); ok {
		uri, err := LoadAttachment(strings.TrimSpace(path))
		if err != nil {
			m.status = err.Error()
			return m
		}
		m.pending = uri
		m.status = "image staged, press enter to send"
		m.input.SetValue("")
		m.session.SetComposing(false)
		return m
	}

	if err := m.session.Send(text, m.pending); err != nil {
		m.status = err.Error()
		return m
	}

	m.pending = ""
	m.status = ""
	m.input.SetValue("")
	return m
}
