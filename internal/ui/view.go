package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/plpchat/client/internal/client"
	"github.com/plpchat/client/internal/protocol"
)

var (
	bannerStyle   = lipgloss.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")).Bold(true)
	sidebarStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	privateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	typingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const sidebarWidth = 22

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder

	if m.session.State() != client.StateConnected {
		b.WriteString(bannerStyle.Width(m.width).Render(" disconnected, reconnecting..."))
		b.WriteString("\n")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderMessages())
	b.WriteString(body)
	b.WriteString("\n")

	if names := m.session.TypingUsers(); len(names) > 0 {
		verb := "is"
		if len(names) > 1 {
			verb = "are"
		}
		b.WriteString(typingStyle.Render(fmt.Sprintf("%s %s typing...", strings.Join(names, ", "), verb)))
	}
	b.WriteString("\n")

	if m.searching {
		b.WriteString("search: " + m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}

	return b.String()
}

func (m Model) renderSidebar() string {
	var lines []string

	global := "  global"
	if m.roomIndex == 0 {
		global = selectedStyle.Render("> global")
	}
	lines = append(lines, global)

	for i, user := range m.peers() {
		entry := "  " + user.Username
		if m.roomIndex == i+1 {
			entry = selectedStyle.Render("> " + user.Username)
		}
		lines = append(lines, entry)
	}

	return sidebarStyle.Width(sidebarWidth).Height(m.messageHeight()).Render(strings.Join(lines, "\n"))
}

func (m Model) renderMessages() string {
	height := m.messageHeight()
	msgs := m.session.Messages(m.search.Value())

	// Show the tail of the projection: the newest messages that fit.
	if len(msgs) > height {
		msgs = msgs[len(msgs)-height:]
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, renderMessage(msg))
	}

	width := m.width - sidebarWidth - 2
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) messageHeight() int {
	h := m.height - 5
	if h < 5 {
		h = 5
	}
	return h
}

func renderMessage(msg protocol.Message) string {
	ts := shortTime(msg.Timestamp)

	if msg.System {
		return systemStyle.Render(fmt.Sprintf("[%s] %s", ts, msg.Text))
	}

	body := msg.Text
	if msg.Image != "" {
		if body != "" {
			body += " "
		}
		body += "[image]"
	}

	sender := senderStyle.Render(msg.Sender)
	if msg.IsPrivate {
		sender = privateStyle.Render(msg.Sender + " (pm)")
	}
	return fmt.Sprintf("[%s] %s: %s", ts, sender, body)
}

// shortTime renders an ISO-8601 timestamp as HH:MM, falling back to the raw
// string when it does not parse.
func shortTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format("15:04")
}
