// Package tui provides a Bubble Tea terminal UI for playing a battle one
// action at a time, plus the lipgloss renderers used to print histories.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
)

// Backend drives one battle. *session.Manager and *battleserver.Client both
// satisfy it.
type Backend interface {
	Act(ctx context.Context, id string, a battle.Action) (session.View, []battle.Event, error)
	Skip(ctx context.Context, id string) (session.View, []battle.Event, error)
	Finish(ctx context.Context, id string) (battle.Report, error)
}

type lineKind int

const (
	lineEvent lineKind = iota
	lineInput
	lineSystem
	lineError
)

// rawLine is an unstyled output line kept so the log can be re-wrapped on resize.
type rawLine struct {
	text string
	kind lineKind
	ev   battle.Event
}

// Model is the Bubble Tea model for one battle.
type Model struct {
	backend Backend
	catalog battle.Catalog
	view    session.View
	timeout time.Duration

	viewport viewport.Model
	input    textinput.Model
	history  *History
	rawLines []rawLine

	width    int
	height   int
	ready    bool
	busy     bool
	report   *battle.Report
	quitting bool
}

// resultMsg carries the outcome of an action or a skip.
type resultMsg struct {
	view   session.View
	events []battle.Event
	err    error
}

// reportMsg carries the rewards of a finished battle.
type reportMsg struct {
	report battle.Report
	err    error
}

// New creates a model for the battle in v.
//
// Precondition: backend and cat must be non-nil; v.State must be non-nil.
func New(backend Backend, cat battle.Catalog, v session.View) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 64
	ti.PromptStyle = styleInputPrompt

	m := Model{
		backend: backend,
		catalog: cat,
		view:    v,
		timeout: 10 * time.Second,
		input:   ti,
		history: NewHistory(100),
	}
	for _, ev := range v.State.History {
		m.rawLines = append(m.rawLines, rawLine{kind: lineEvent, ev: ev})
	}
	m.rawLines = append(m.rawLines, rawLine{kind: lineSystem, text: "Type /help for commands."})
	return m
}

// Run starts the Bubble Tea program and blocks until the player quits. It
// returns the report if the battle was finished.
func Run(backend Backend, cat battle.Catalog, v session.View) (*battle.Report, error) {
	p := tea.NewProgram(New(backend, cat, v), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).report, nil
}

// Report returns the battle's rewards once it has been finished.
func (m Model) Report() *battle.Report { return m.report }

// Init blinks the cursor, and finishes a battle that ended on the enemy's opening turn.
func (m Model) Init() tea.Cmd {
	if battle.IsTerminal(m.view.State) {
		return tea.Batch(textinput.Blink, m.finishCmd())
	}
	return textinput.Blink
}

// Update handles key presses, window resizes, and backend replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.handleEnter()
		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case resultMsg:
		return m.handleResult(msg)

	case reportMsg:
		m.busy = false
		if msg.err != nil {
			m = m.appendLines(lineError, msg.err.Error())
			return m, nil
		}
		m.report = &msg.report
		m = m.appendLines(lineSystem, reportLines(msg.report)...)
		m = m.appendLines(lineSystem, "Type /quit to leave.")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	m.history.Push(input)
	m.history.ResetCursor()
	m = m.appendLines(lineInput, "> "+input)

	c, err := parseCommand(input)
	if err != nil {
		return m.appendLines(lineError, err.Error()), nil
	}
	if c.meta != "" {
		lines, quit := m.handleMeta(c.meta)
		m = m.appendLines(lineSystem, lines...)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}
	switch {
	case m.busy:
		return m.appendLines(lineSystem, "Waiting for the battle to respond."), nil
	case battle.IsTerminal(m.view.State):
		return m.appendLines(lineSystem, "The battle is over. Type /quit to leave."), nil
	}

	m.busy = true
	if c.skip {
		return m, m.skipCmd()
	}
	return m, m.actCmd(c.action)
}

func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.view.State != nil {
		m.view = msg.view
	}
	for _, ev := range msg.events {
		m.rawLines = append(m.rawLines, rawLine{kind: lineEvent, ev: ev})
	}
	if msg.err != nil {
		text := msg.err.Error()
		if errors.Is(msg.err, battle.ErrRunawayBattle) {
			text = "The battle is dragging on; keep fighting or skip again."
		}
		m.rawLines = append(m.rawLines, rawLine{kind: lineError, text: text})
	}
	m.refreshViewport()
	if battle.IsTerminal(m.view.State) {
		m.busy = true
		return m, m.finishCmd()
	}
	return m, nil
}

func (m Model) actCmd(a battle.Action) tea.Cmd {
	backend, id, timeout := m.backend, m.view.ID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		v, evs, err := backend.Act(ctx, id, a)
		return resultMsg{view: v, events: evs, err: err}
	}
}

func (m Model) skipCmd() tea.Cmd {
	backend, id, timeout := m.backend, m.view.ID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		v, evs, err := backend.Skip(ctx, id)
		return resultMsg{view: v, events: evs, err: err}
	}
}

func (m Model) finishCmd() tea.Cmd {
	backend, id, timeout := m.backend, m.view.ID, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r, err := backend.Finish(ctx, id)
		return reportMsg{report: r, err: err}
	}
}

func (m Model) appendLines(kind lineKind, lines ...string) Model {
	for _, l := range lines {
		m.rawLines = append(m.rawLines, rawLine{kind: kind, text: l})
	}
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles every line at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)
	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		switch rl.kind {
		case lineEvent:
			styled = append(styled, RenderEvent(rl.ev, width))
		case lineInput:
			styled = append(styled, styleInputPrompt.Render(wordWrap(rl.text, width)))
		case lineError:
			styled = append(styled, styleError.Render(wordWrap(rl.text, width)))
		default:
			styled = append(styled, styleSystem.Render(wordWrap(rl.text, width)))
		}
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the battle log, the status bar, and the input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

func (m *Model) handleMeta(cmd string) ([]string, bool) {
	switch cmd {
	case "/quit", "/exit", "/q":
		return []string{"Goodbye."}, true
	case "/help":
		return helpLines(), false
	case "/skills":
		return m.skillLines(), false
	case "/items":
		return m.itemLines(), false
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func helpLines() []string {
	return []string{
		"Actions:",
		"  attack (a)         basic attack",
		"  skill <id> (s)     use a skill",
		"  item <id> (i)      use a consumable",
		"  pet <id> (p)       command your companion",
		"  defend (d)         raise your guard",
		"  flee (f)           try to escape",
		"  skip (ff)          fast-forward with basic attacks",
		"System:",
		"  /skills  /items  /help  /quit",
		"PgUp/PgDn scroll, Up/Down recall commands",
	}
}

func (m *Model) skillLines() []string {
	s := m.view.State
	if len(s.Player.Skills) == 0 {
		return []string{"You know no skills."}
	}
	lines := make([]string, 0, len(s.Player.Skills))
	for _, id := range s.Player.Skills {
		sk, ok := m.catalog.Skill(id)
		if !ok {
			continue
		}
		state := "ready"
		switch cd := s.Player.Cooldowns[id]; {
		case cd > 0:
			state = fmt.Sprintf("cooldown %d", cd)
		case sk.Cost.Mana > s.Player.Mana:
			state = "not enough mana"
		}
		lines = append(lines, fmt.Sprintf("  %-12s %-16s mana %-3d %s", id, sk.Name, sk.Cost.Mana, state))
	}
	if s.Companion != nil {
		for _, id := range s.Companion.Skills {
			state := "ready"
			if cd := s.PetSkillCooldowns[id]; cd > 0 {
				state = fmt.Sprintf("cooldown %d", cd)
			}
			lines = append(lines, fmt.Sprintf("  pet %-8s %-16s %s", id, s.Companion.Name, state))
		}
	}
	return lines
}

func (m *Model) itemLines() []string {
	s := m.view.State
	var lines []string
	for _, inv := range s.Inventory {
		if inv.Quantity <= 0 {
			continue
		}
		name := inv.ItemID
		if it, ok := m.catalog.Item(inv.ItemID); ok && it.Name != "" {
			name = it.Name
		}
		state := "ready"
		if cd := s.ItemCooldowns[inv.ItemID]; cd > 0 {
			state = fmt.Sprintf("cooldown %d", cd)
		}
		lines = append(lines, fmt.Sprintf("  %-12s %-16s x%d %s", inv.ItemID, name, inv.Quantity, state))
	}
	if len(lines) == 0 {
		return []string{"Your pack is empty."}
	}
	return lines
}

// viewportKeyMap disables Up/Down, which recall input history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
