package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/miosa/aac-board/style"
)

// ToastLevel classifies toast severity.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastWarning
	ToastError
)

const (
	maxToasts = 3
	toastTTL  = 4 * time.Second
	errorTTL  = 8 * time.Second
)

type toast struct {
	message string
	level   ToastLevel
	expiry  time.Time
}

// ToastsModel manages a queue of auto-dismissing notifications. Errors stay
// up twice as long as other toasts.
type ToastsModel struct {
	queue []toast
}

// NewToasts creates an empty ToastsModel.
func NewToasts() ToastsModel {
	return ToastsModel{}
}

// Add enqueues a toast at now. The same message already on screen is
// refreshed instead of repeated. Oldest toasts are dropped past maxToasts.
func (m *ToastsModel) Add(message string, level ToastLevel, now time.Time) {
	if message == "" {
		return
	}
	ttl := toastTTL
	if level == ToastError {
		ttl = errorTTL
	}
	for i := range m.queue {
		if m.queue[i].message == message {
			m.queue[i].level, m.queue[i].expiry = level, now.Add(ttl)
			return
		}
	}
	m.queue = append(m.queue, toast{message: message, level: level, expiry: now.Add(ttl)})
	if len(m.queue) > maxToasts {
		m.queue = m.queue[len(m.queue)-maxToasts:]
	}
}

// Tick prunes toasts expired at now. Call on every msg.TickMsg.
func (m *ToastsModel) Tick(now time.Time) {
	alive := m.queue[:0]
	for _, t := range m.queue {
		if now.Before(t.expiry) {
			alive = append(alive, t)
		}
	}
	m.queue = alive
}

// Len is the number of visible toasts.
func (m ToastsModel) Len() int {
	return len(m.queue)
}

// View renders visible toasts as right-aligned colored lines.
func (m ToastsModel) View(termWidth int) string {
	if len(m.queue) == 0 {
		return ""
	}
	var lines []string
	for _, t := range m.queue {
		icon, color := toastIconColor(t.level)
		rendered := lipgloss.NewStyle().
			Foreground(color).
			Render(fmt.Sprintf(" %s %s ", icon, t.message))
		pad := max(termWidth-lipgloss.Width(rendered), 0)
		lines = append(lines, strings.Repeat(" ", pad)+rendered)
	}
	return strings.Join(lines, "\n")
}

func toastIconColor(level ToastLevel) (string, lipgloss.TerminalColor) {
	switch level {
	case ToastWarning:
		return "\u26A0", style.Warning // ⚠
	case ToastError:
		return "\u2718", style.Error // ✘
	default:
		return "\u2713", style.Success // ✓
	}
}
