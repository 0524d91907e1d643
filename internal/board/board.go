// Package board renders a live roster for one program in the terminal.
package board

import (
	"fmt"
	"strings"
	"time"

	"checkin-app-go/internal/pollclient"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	tableBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
)

const (
	pickedUpMark = "released"
	awaitingMark = "waiting"
)

type sessionMsg pollclient.Update[pollclient.SessionEvent]

type rosterMsg pollclient.Update[[]pollclient.RosterEntry]

type closedMsg struct{ source string }

// Model is the bubbletea model of the board. It only reads from the
// watchers; stopping them is the caller's job once the program exits.
type Model struct {
	program  string
	sessions <-chan pollclient.Update[pollclient.SessionEvent]
	roster   <-chan pollclient.Update[[]pollclient.RosterEntry]

	session   *pollclient.Session
	known     bool
	entries   []pollclient.RosterEntry
	updatedAt time.Time
	status    string
	table     table.Model
	width     int
}

func New(program string, sessions pollclient.Watcher[pollclient.SessionEvent], roster pollclient.Watcher[[]pollclient.RosterEntry]) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	return Model{
		program:  program,
		sessions: sessions.Updates(),
		roster:   roster.Updates(),
		table:    t,
		status:   "waiting for first poll",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitSession(m.sessions), waitRoster(m.roster))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		if msg.Height > 8 {
			m.table.SetHeight(msg.Height - 8)
		}
		return m, nil
	case sessionMsg:
		m.known = true
		m.session = msg.Value.Session
		m.updatedAt = msg.FetchedAt
		switch msg.Value.Kind {
		case pollclient.SessionPresent:
			m.status = "check-in opened"
		case pollclient.SessionChanged:
			m.status = "a new session replaced the previous one"
		case pollclient.SessionAbsent:
			m.status = "check-in is closed"
		}
		return m, waitSession(m.sessions)
	case rosterMsg:
		m.entries = msg.Value
		m.updatedAt = msg.FetchedAt
		m.table.SetRows(rows(msg.Value))
		return m, waitRoster(m.roster)
	case closedMsg:
		m.status = msg.source + " polling stopped"
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Roster · " + m.program))
	b.WriteString("  ")
	b.WriteString(m.sessionLine())
	b.WriteString("\n")
	b.WriteString(tableBorder.Render(m.table.View()))
	b.WriteString("\n")

	footer := fmt.Sprintf("%d checked in · %d awaiting pickup · %s", len(m.entries), awaiting(m.entries), m.status)
	if !m.updatedAt.IsZero() {
		footer += " · updated " + m.updatedAt.Format("15:04:05")
	}
	b.WriteString(footerStyle.Render(footer + " · q to quit"))
	return b.String()
}

func (m Model) sessionLine() string {
	switch {
	case !m.known:
		return footerStyle.Render("session unknown")
	case m.session == nil:
		return closedStyle.Render("CLOSED")
	case m.session.Code != "":
		return openStyle.Render("OPEN · code " + m.session.Code)
	default:
		return openStyle.Render("OPEN")
	}
}

func waitSession(ch <-chan pollclient.Update[pollclient.SessionEvent]) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return closedMsg{source: "session"}
		}
		return sessionMsg(update)
	}
}

func waitRoster(ch <-chan pollclient.Update[[]pollclient.RosterEntry]) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return closedMsg{source: "roster"}
		}
		return rosterMsg(update)
	}
}

func columns(width int) []table.Column {
	name := 24
	if width > 100 {
		name = width - 76
	}
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Type", Width: 7},
		{Title: "Name", Width: name},
		{Title: "Party", Width: 6},
		{Title: "New", Width: 4},
		{Title: "Pickup", Width: 9},
		{Title: "Allergies", Width: 18},
	}
}

func rows(entries []pollclient.RosterEntry) []table.Row {
	result := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		party := ""
		if e.Type != "child" {
			party = fmt.Sprintf("%d+%d", e.Adults, e.Children)
		}
		firstTime := ""
		if e.FirstTime {
			firstTime = "yes"
		}
		pickup := ""
		switch {
		case e.PickedUpAt != nil:
			pickup = pickedUpMark
		case e.Awaiting:
			pickup = awaitingMark
		}
		allergies := ""
		if e.Allergies != nil {
			allergies = *e.Allergies
		}
		result = append(result, table.Row{
			e.CheckedInAt.Local().Format("15:04"),
			e.Type,
			e.DisplayName,
			party,
			firstTime,
			pickup,
			allergies,
		})
	}
	return result
}

func awaiting(entries []pollclient.RosterEntry) int {
	count := 0
	for _, e := range entries {
		if e.Type == "child" && e.PickedUpAt == nil {
			count++
		}
	}
	return count
}
