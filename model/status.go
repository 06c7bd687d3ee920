package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/miosa/aac-board/msg"
	"github.com/miosa/aac-board/style"
)

// StatusModel renders the bottom line:
//
//	⠋ saving · editor · passato · medium · anna · ● backend ok 12ms
//
// The spinner only runs while an operation is in flight.
type StatusModel struct {
	spin    spinner.Model
	busy    string // action in flight, empty when idle
	mode    string
	tense   string
	size    string
	user    string
	health  *msg.HealthResult
	checked time.Time
}

// NewStatus returns an idle StatusModel.
func NewStatus() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = style.StatusTense
	return StatusModel{spin: s}
}

// SetBoard updates the board settings shown on the line.
func (m *StatusModel) SetBoard(mode, tense, size string) {
	m.mode, m.tense, m.size = mode, tense, size
}

// SetUser sets the signed-in username.
func (m *StatusModel) SetUser(name string) {
	m.user = name
}

// SetHealth records the latest ping result.
func (m *StatusModel) SetHealth(h msg.HealthResult, at time.Time) {
	m.health = &h
	m.checked = at
}

// Busy marks an operation as running. The returned command starts the
// spinner when it was idle.
func (m *StatusModel) Busy(action string) tea.Cmd {
	wasIdle := m.busy == ""
	m.busy = action
	if wasIdle {
		return m.spin.Tick
	}
	return nil
}

// Idle clears the running operation.
func (m *StatusModel) Idle() {
	m.busy = ""
}

// IsBusy reports whether an operation is running.
func (m StatusModel) IsBusy() bool {
	return m.busy != ""
}

// Update advances the spinner while busy.
func (m StatusModel) Update(message tea.Msg) (StatusModel, tea.Cmd) {
	if _, ok := message.(spinner.TickMsg); !ok || m.busy == "" {
		return m, nil
	}
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(message)
	return m, cmd
}

// View renders the status line.
func (m StatusModel) View() string {
	var parts []string
	if m.busy != "" {
		parts = append(parts, m.spin.View()+" "+m.busy)
	}
	if m.mode == "editor" {
		parts = append(parts, style.StatusEditor.Render("editor"))
	} else if m.mode != "" {
		parts = append(parts, style.StatusMode.Render(m.mode))
	}
	if m.tense != "" {
		parts = append(parts, style.StatusTense.Render(m.tense))
	}
	if m.size != "" {
		parts = append(parts, m.size)
	}
	if m.user != "" {
		parts = append(parts, m.user)
	}
	if h := m.healthLine(); h != "" {
		parts = append(parts, h)
	}
	return style.StatusBar.Render(strings.Join(parts, " · "))
}

// healthLine renders the backend indicator.
//
//	● backend ok 12ms
//	● backend down
func (m StatusModel) healthLine() string {
	if m.health == nil {
		return ""
	}
	if !m.health.Up() {
		return style.HealthDown.Render("● backend down")
	}
	return style.HealthUp.Render(fmt.Sprintf("● backend ok %s", m.health.Latency.Round(time.Millisecond)))
}
