// Package ui is the terminal chat front end.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/reinhart/lumen/internal/assistant"
)

const (
	// requestTimeout bounds one conversational turn, tool rounds included.
	requestTimeout = 3 * time.Minute

	maxStatusLines = 3
	inputLimit     = 500
)

const greeting = "Hi! Ask me about your spending, categories, or anything unusual in your transactions."

// Chatter is the conversational entry point the UI drives.
type Chatter interface {
	Chat(ctx context.Context, message string, opts ...assistant.ChatOption) assistant.ChatResult
}

type State int

const (
	StateReady State = iota
	StateThinking
)

type Model struct {
	chat Chatter

	input    textarea.Model
	history  viewport.Model
	spinner  spinner.Model
	state    State
	asked    int
	lastUsed assistant.ProviderName

	statusHistory []string
	updates       chan assistant.StatusUpdate
	transcript    string

	width  int
	height int
}

func newInput(width int) textarea.Model {
	in := textarea.New()
	in.Placeholder = "Ask about your spending..."
	in.ShowLineNumbers = false
	in.Prompt = "" // the rupee glyph is drawn once, outside the textarea
	in.CharLimit = inputLimit
	in.SetHeight(3)

	in.FocusedStyle.CursorLine = lipgloss.NewStyle()
	in.FocusedStyle.Text = lipgloss.NewStyle().Foreground(paperColor)
	in.FocusedStyle.Placeholder = hintText
	in.Focus()

	if width > 4 {
		in.SetWidth(width - 4)
	}
	return in
}

func NewModel(chat Chatter) Model {
	welcome := lumenLabel.Render("Lumen") + "\n" + bodyText.Render(greeting)

	history := viewport.New(80, 20)
	history.SetContent(welcome)

	spin := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	spin.Style = lipgloss.NewStyle().Foreground(accentColor)

	return Model{
		chat:          chat,
		input:         newInput(0),
		history:       history,
		spinner:       spin,
		statusHistory: []string{},
		transcript:    welcome,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// chatMsg carries a finished Chat call back to Update.
type chatMsg struct {
	result assistant.ChatResult
}

// statusMsg is one progress line from a running Chat call.
type statusMsg struct {
	msg string
}

func listenForUpdates(updates <-chan assistant.StatusUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return statusMsg{msg: u.Message}
	}
}

// processInput runs one Chat call. Progress is forwarded without blocking;
// the channel is closed once the call returns.
func processInput(chat Chatter, input string, updates chan assistant.StatusUpdate) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		defer close(updates)

		forward := func(u assistant.StatusUpdate) {
			select {
			case updates <- u:
			default:
			}
		}
		return chatMsg{result: chat.Chat(ctx, input, assistant.WithProgress(forward))}
	}
}

// formatResult renders an answer with its provenance line. Failures show
// only the user-safe response.
func formatResult(res assistant.ChatResult) string {
	label := lumenLabel.Render("Lumen")
	if !res.Success {
		return label + "\n" + alertText.Render(res.Response)
	}

	var meta []string
	if len(res.ToolsUsed) > 0 {
		meta = append(meta, "tools: "+strings.Join(res.ToolsUsed, ", "))
	}
	if res.ProviderUsed != "" {
		meta = append(meta, "via "+string(res.ProviderUsed))
	}

	out := label + "\n" + bodyText.Render(res.Response)
	if len(meta) > 0 {
		out += "\n" + hintText.Render(strings.Join(meta, " · "))
	}
	return out
}

func (m *Model) appendTranscript(s string) {
	m.transcript += s
	m.history.SetContent(m.transcript)
	m.history.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	// title, two frames, status line and the input rows
	m.history.Width = width - 4
	m.history.Height = max(height-10, 5)
	m.input.SetWidth(width - 4)
}

func (m Model) submit() (Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}

	m.appendTranscript("\n" + youLabel.Render("You") + "\n" + bodyText.Render(question) + "\n")
	m.asked++
	m.state = StateThinking
	m.statusHistory = []string{"Looking into it..."}
	m.updates = make(chan assistant.StatusUpdate, 10)
	// a fresh textarea forgets the cursor row of the previous question
	m.input = newInput(m.width)

	return m, tea.Batch(
		listenForUpdates(m.updates),
		processInput(m.chat, question, m.updates),
	)
}

func (m Model) finish(res assistant.ChatResult) Model {
	m.state = StateReady
	m.updates = nil
	if res.ProviderUsed != "" {
		m.lastUsed = res.ProviderUsed
	}

	rule := dividerLine.Render(strings.Repeat("─", max(m.width/2, 10)))
	m.appendTranscript(formatResult(res) + "\n\n" + rule + "\n")
	m.input.Focus()
	return m
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			if m.state == StateReady {
				m.transcript = ""
				m.appendTranscript(lumenLabel.Render("Lumen") + "\n" + bodyText.Render(greeting))
				return m, nil
			}
		case tea.KeyEnter:
			if !msg.Alt && m.state == StateReady {
				return m.submit()
			}
		}

	case statusMsg:
		m.statusHistory = append(m.statusHistory, msg.msg)
		if n := len(m.statusHistory); n > maxStatusLines {
			m.statusHistory = m.statusHistory[n-maxStatusLines:]
		}
		if m.state == StateThinking {
			cmds = append(cmds, listenForUpdates(m.updates))
		}

	case chatMsg:
		return m.finish(msg.result), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	cmds = append(cmds, cmd)

	// keystrokes typed while a request runs are dropped
	if m.state == StateReady {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) title() string {
	t := "Lumen · read-only spending assistant"
	if m.asked > 0 {
		t += fmt.Sprintf(" · %d asked", m.asked)
	}
	if m.lastUsed != "" {
		t += " · last answer via " + string(m.lastUsed)
	}
	return titleBar.Render(t)
}

func (m Model) statusLine() string {
	if m.state != StateThinking {
		return hintText.Render(" Ready. Enter to ask, Ctrl+L to clear, Esc to quit.")
	}
	return fmt.Sprintf(" %s %s", m.spinner.View(), hintText.Render(strings.Join(m.statusHistory, "  ›  ")))
}

func (m Model) View() string {
	transcript := frame.Width(m.width - 2).Height(m.history.Height + 2).Render(m.history.View())
	status := lipgloss.NewStyle().Width(m.width).Render(m.statusLine())
	input := inputFrame.Width(m.width - 2).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, promptGlyph.Render("₹ "), m.input.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.title(), transcript, status, input)
}

// Run starts the full-screen chat.
func Run(chat Chatter) error {
	_, err := tea.NewProgram(NewModel(chat), tea.WithAltScreen()).Run()
	return err
}
