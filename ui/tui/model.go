// Package tui is the terminal front end: an agent selector, the selected
// agent's transcript and a prompt box.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	frontendx "github.com/tanpawarit/sentinel-orchestrator/agent/frontend"
	statex "github.com/tanpawarit/sentinel-orchestrator/agent/state"
)

const appTitle = "SENTINEL · five-stage analysis pipeline"

type replyMsg struct {
	resp contractx.AskResponse
}

type resetMsg struct {
	st  statex.SessionState
	err error
}

// Model is the bubbletea model. The session state is the single source of
// truth; widgets are rebuilt from it after every update.
type Model struct {
	ctrl *frontendx.Controller
	st   statex.SessionState

	ta       textarea.Model
	vp       viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	notice string
	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Model)

// WithRenderer sets the Markdown renderer for replies. Nil renders plain text.
func WithRenderer(r *glamour.TermRenderer) Option {
	return func(m *Model) {
		m.renderer = r
	}
}

func New(ctrl *frontendx.Controller, st statex.SessionState, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())

	ta := textarea.New()
	ta.Placeholder = "Ask the selected agent. ctrl+s to send."
	ta.Prompt = "› "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctrl:   ctrl,
		st:     st,
		ta:     ta,
		vp:     viewport.New(80, 20),
		spin:   sp,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.st.DocumentName != "" {
		m.notice = "📄 Context loaded from " + m.st.DocumentName
	}
	m.refresh()
	return m
}

// DefaultRenderer builds a glamour renderer that follows the terminal theme.
func DefaultRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// State returns the current session state.
func (m Model) State() statex.SessionState {
	return m.st
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "tab":
			return m.cycle(1), nil
		case "shift+tab":
			return m.cycle(-1), nil
		case "ctrl+s":
			return m.ask()
		case "ctrl+n":
			return m.sendToNext()
		case "ctrl+r":
			return m.resetSelected()
		case "pgup":
			m.vp.HalfViewUp()
			return m, nil
		case "pgdown":
			m.vp.HalfViewDown()
			return m, nil
		}

	case replyMsg:
		m.st = m.ctrl.Finish(m.st, msg.resp)
		m.notice = ""
		if msg.resp.Failed {
			m.notice = "⚠️ the call failed; see the transcript"
		}
		m.refresh()
		m.vp.GotoBottom()
		return m, nil

	case resetMsg:
		if msg.err != nil {
			m.notice = "⚠️ " + msg.err.Error()
		} else {
			m.st = msg.st
			m.notice = "♻️ Memory cleared"
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.st.Running {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m Model) cycle(step int) Model {
	if m.st.Running {
		return m
	}
	order := m.ctrl.Personas().Order()
	i := (m.st.Position + step + len(order)) % len(order)
	next, err := m.st.Select(m.ctrl.Personas(), string(order[i].Key))
	if err != nil {
		m.notice = "⚠️ " + err.Error()
		return m
	}
	m.st = next
	m.notice = ""
	m.refresh()
	m.vp.GotoBottom()
	return m
}

func (m Model) ask() (tea.Model, tea.Cmd) {
	next, pending, err := m.ctrl.Start(m.st, m.ta.Value())
	if err != nil {
		m.notice = warning(err)
		return m, nil
	}
	m.st = next
	m.ta.Reset()
	m.notice = ""
	m.refresh()
	m.vp.GotoBottom()
	return m, tea.Batch(m.spin.Tick, m.call(pending))
}

func (m Model) sendToNext() (tea.Model, tea.Cmd) {
	// Text left in the input rides along as a follow-up question.
	next, pending, err := m.ctrl.StartHandoff(m.st, m.ta.Value())
	if err != nil {
		m.notice = warning(err)
		return m, nil
	}
	m.st = next
	m.ta.Reset()
	m.notice = ""
	m.refresh()
	m.vp.GotoBottom()
	return m, tea.Batch(m.spin.Tick, m.call(pending))
}

func (m Model) resetSelected() (tea.Model, tea.Cmd) {
	if m.st.Running {
		m.notice = warning(statex.ErrBusy)
		return m, nil
	}
	ctx, ctrl, st := m.ctx, m.ctrl, m.st
	return m, func() tea.Msg {
		next, err := ctrl.Reset(ctx, st, st.Selected)
		return resetMsg{st: next, err: err}
	}
}

func (m Model) call(pending statex.Pending) tea.Cmd {
	ctx, ctrl, sessionID := m.ctx, m.ctrl, m.st.SessionID
	return func() tea.Msg {
		return replyMsg{resp: ctrl.Call(ctx, sessionID, pending)}
	}
}

func warning(err error) string {
	switch {
	case errors.Is(err, contractx.ErrEmptyQuery):
		return "⚠️ Please type something."
	case errors.Is(err, contractx.ErrNoNextAgent):
		return "🏁 CIPHER is the final stage; there is no next agent."
	case errors.Is(err, statex.ErrNoReply):
		return "⚠️ Ask this agent something before handing off."
	case errors.Is(err, statex.ErrBusy):
		return "⏳ Wait for the current agent to finish."
	default:
		return "⚠️ " + err.Error()
	}
}

func (m *Model) resize() {
	w := max(40, m.width-4)
	m.ta.SetWidth(w)
	m.vp.Width = w
	m.vp.Height = max(5, m.height-m.ta.Height()-9)
	if m.renderer != nil {
		m.renderer = DefaultRenderer(w - 4)
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.vp.SetContent(m.transcript())
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	activeTab    = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
	inactiveTab  = lipgloss.NewStyle().Padding(0, 1).Faint(true)
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	agentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	handoffStyle = lipgloss.NewStyle().Italic(true).Faint(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m Model) transcript() string {
	agent, _ := m.ctrl.Personas().Lookup(string(m.st.Selected))
	thread := m.st.Thread(m.st.Selected)
	if len(thread) == 0 {
		return faintStyle.Render(fmt.Sprintf("%s · %s\n\n%s", agent.Name, agent.Role, agent.Mission))
	}

	var b strings.Builder
	for _, msg := range thread {
		switch msg.Role {
		case contractx.RoleUser:
			b.WriteString(userStyle.Render("You") + " " + faintStyle.Render(msg.At.Local().Format(time.Kitchen)) + "\n")
			b.WriteString(msg.Content + "\n\n")
		case contractx.RoleAssistant:
			b.WriteString(agentStyle.Render(agent.Name) + "\n")
			if msg.Failed {
				b.WriteString(failedStyle.Render(msg.Content) + "\n\n")
				continue
			}
			b.WriteString(m.render(msg.Content))
			if msg.Handoff != nil && msg.Parsed && msg.Handoff.NextSteps != "" {
				b.WriteString(handoffStyle.Render("next steps: "+msg.Handoff.NextSteps) + "\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) render(markdown string) string {
	if m.renderer == nil {
		return markdown + "\n"
	}
	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown + "\n"
	}
	return out
}

func (m Model) View() string {
	personas := m.ctrl.Personas()

	tabs := make([]string, 0, 5)
	for _, a := range personas.Order() {
		label := a.Name
		if a.Key == m.st.Selected {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, inactiveTab.Render(label))
		}
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(appTitle),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
	)

	status := ""
	switch {
	case m.st.Running:
		status = m.spin.View() + " " + strings.ToUpper(string(m.st.Selected)) + " is thinking…"
	case m.st.CanSendNext(personas):
		next, _ := m.st.NextAgent(personas)
		status = "➡️  ready to hand off to " + next.Name + " (ctrl+n)"
	}
	if m.notice != "" {
		status = noticeStyle.Render(m.notice)
	}

	help := faintStyle.Render("ctrl+s ask · ctrl+n send to next (input adds a follow-up) · tab/shift+tab agent · ctrl+r reset · esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		boxStyle.Render(m.vp.View()),
		status,
		boxStyle.Render(m.ta.View()),
		help,
	)
}
