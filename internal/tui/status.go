package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// meter renders cur/total as a fixed-width bar.
func meter(cur, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = cur * width / total
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func unitSummary(u *battle.Unit) string {
	if u == nil {
		return ""
	}
	s := fmt.Sprintf("%s HP %d/%d %s", u.Name, u.HP, u.MaxHP, meter(u.HP, u.MaxHP, 10))
	if u.MaxMana > 0 {
		s += fmt.Sprintf(" MP %d/%d", u.Mana, u.MaxMana)
	}
	return s
}

// renderStatusBar produces a full-width line with both units and the turn.
func (m Model) renderStatusBar() string {
	s := m.view.State
	if s == nil {
		return styleStatusBar.Width(m.width).Render(" no battle")
	}
	left := " " + unitSummary(s.Player) + " | " + unitSummary(s.Enemy)

	var right string
	switch {
	case battle.IsTerminal(s):
		right = fmt.Sprintf("%s | R:%d ", s.Outcome, s.Round)
	case s.WaitingForPlayerAction:
		right = fmt.Sprintf("Actions %d/%d | R:%d ", s.PlayerActionsRemaining, s.PlayerMaxActions, s.Round)
	default:
		right = fmt.Sprintf("%s acting | R:%d ", s.Turn, s.Round)
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
