package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"agentchat/internal/chat"
	"agentchat/internal/domain"
	"agentchat/internal/groundedness"
	"agentchat/internal/session"
)

const (
	Title       = "AI Chatbot with Tools"
	Placeholder = "Ask a question!"
)

// ChatPort is the TUI-facing side of the chat pipeline.
type ChatPort interface {
	Submit(ctx context.Context, log *session.Log, input string) (chat.Result, error)
}

// turnDoneMsg carries the outcome of a submitted turn back into Update.
type turnDoneMsg struct {
	question string
	result   chat.Result
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	port     ChatPort
	log      *session.Log
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	summary string
	// transcript is everything shown on screen. It grows without bound while
	// log keeps only the recent messages sent to the model.
	transcript []domain.Turn
	pending    string
	verdict    *groundedness.Verdict
	status     string
	busy       bool
	ready      bool
}

// New creates the chat model. log is owned by the model from here on.
func New(ctx context.Context, port ChatPort, log *session.Log, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = Placeholder
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:        ctx,
		port:       port,
		log:        log,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		summary:    summary,
		transcript: log.Turns(),
		status:     "Document loaded. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.markdown = newMarkdownRenderer(m.viewport.Width - 4)
		m.refresh()
		return m, nil

	case turnDoneMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.verdict = nil
		} else {
			m.transcript = append(m.transcript, domain.UserTurn(msg.question), domain.AssistantTurn(msg.result.Answer))
			v := msg.result.Verdict
			m.verdict = &v
			m.status = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if m.busy || q == "" {
				return m, nil
			}
			m.busy = true
			m.pending = q
			m.verdict = nil
			m.status = "Thinking..."
			m.input.Reset()
			m.refresh()
			return m, tea.Batch(m.submit(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the pipeline off the UI loop. The log is only touched here
// while busy is set, so it has a single writer.
func (m Model) submit(q string) tea.Cmd {
	port, log, ctx := m.port, m.log, m.ctx
	return func() tea.Msg {
		res, err := port.Submit(ctx, log, q)
		return turnDoneMsg{question: q, result: res, err: err}
	}
}

// View renders the header, conversation, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(Title)
	summary := summaryStyle.Render(m.summary)
	conversation := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	return header + "\n" + summary + "\n" + conversation + "\n" + input + "\n" + m.statusLine()
}

func (m Model) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + statusStyle.Render(m.status)
	case m.verdict != nil:
		return VerdictStyle(m.verdict.Status).Render(m.verdict.Caption())
	case strings.HasPrefix(m.status, "Error"):
		return errorStyle.Render(m.status)
	default:
		return statusStyle.Render(m.status)
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.transcript) == 0 && m.pending == "" {
		return summaryStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for _, t := range m.transcript {
		b.WriteString(m.renderTurn(t))
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(m.renderTurn(domain.UserTurn(m.pending)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTurn(t domain.Turn) string {
	if t.Role == domain.RoleUser {
		return userLabelStyle.Render("you") + "\n" + t.Content + "\n"
	}
	body := t.Content
	if m.markdown != nil {
		if out, err := m.markdown.Render(t.Content); err == nil {
			body = strings.Trim(out, "\n")
		}
	}
	return assistantLabelStyle.Render("assistant") + "\n" + body + "\n"
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return nil
	}
	return r
}

// VerdictStyle colours a groundedness caption: blue when grounded, red when
// not, yellow when the check could not run.
func VerdictStyle(s groundedness.Status) lipgloss.Style {
	switch s {
	case groundedness.Grounded:
		return groundedStyle
	case groundedness.NotGrounded:
		return notGroundedStyle
	default:
		return unavailableStyle
	}
}

var (
	titleStyle          = lipgloss.NewStyle().Bold(true)
	summaryStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	chatBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	groundedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	notGroundedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unavailableStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
