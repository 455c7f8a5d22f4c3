package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// Styles used throughout the TUI and the history printer.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	stylePlayerAction = lipgloss.NewStyle().
				Foreground(lipgloss.Color("114"))

	styleEnemyAction = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203"))

	styleCrit = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	styleRestore = lipgloss.NewStyle().
			Foreground(lipgloss.Color("80"))

	styleModifier = lipgloss.NewStyle().
			Foreground(lipgloss.Color("177"))

	styleRound = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true)

	styleOutcome = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// eventText returns the unstyled display line for ev.
func eventText(ev battle.Event) string {
	switch ev.Kind {
	case battle.EventRoundStarted:
		return fmt.Sprintf("== Round %d ==", ev.Round)
	case battle.EventDamage:
		if ev.Crit {
			return ev.Text + " Critical hit!"
		}
	}
	return ev.Text
}

// styleFor picks the style of an event line.
func styleFor(ev battle.Event) lipgloss.Style {
	switch ev.Kind {
	case battle.EventRoundStarted:
		return styleRound
	case battle.EventBattleEnded, battle.EventFled, battle.EventEncounter:
		return styleOutcome
	case battle.EventHeal, battle.EventManaRestored:
		return styleRestore
	case battle.EventModifierApplied, battle.EventModifierExpired:
		return styleModifier
	case battle.EventDeadlockRecovered:
		return styleWarn
	case battle.EventDamage:
		if ev.Crit {
			return styleCrit
		}
	}
	if ev.Actor == battle.SideEnemy {
		return styleEnemyAction
	}
	return stylePlayerAction
}

// RenderEvent renders one event line, wrapped to width (0 = no wrapping).
func RenderEvent(ev battle.Event, width int) string {
	return styleFor(ev).Render(wordWrap(eventText(ev), width))
}

// RenderHistory renders a battle history, one event per line.
func RenderHistory(events []battle.Event, width int) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, RenderEvent(ev, width))
	}
	return strings.Join(lines, "\n")
}

// reportLines summarizes a reward report.
func reportLines(r battle.Report) []string {
	lines := []string{
		fmt.Sprintf("Outcome: %s after %d rounds", r.Outcome, r.Rounds),
		fmt.Sprintf("HP lost: %d (HP %d, mana %d)", r.HPLoss, r.FinalHP, r.FinalMana),
	}
	if r.Victory {
		lines = append(lines, fmt.Sprintf("Experience +%d, currency +%d", r.ExpChange, r.CurrencyChange))
	}
	for _, d := range r.Drops {
		lines = append(lines, fmt.Sprintf("Found %d x %s", d.Quantity, d.ItemID))
	}
	return lines
}

// RenderReport renders a reward report.
func RenderReport(r battle.Report) string {
	lines := reportLines(r)
	lines[0] = styleOutcome.Render(lines[0])
	for i := 1; i < len(lines); i++ {
		lines[i] = styleSystem.Render(lines[i])
	}
	return strings.Join(lines, "\n")
}

// wordWrap wraps text at word boundaries to fit width. A width <= 0 or a
// short text is returned unchanged.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			b.WriteString("\n")
			lineLen = len(word)
		default:
			b.WriteString(" ")
			lineLen += 1 + len(word)
		}
		b.WriteString(word)
	}
	return b.String()
}
