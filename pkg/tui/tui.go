package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Console is the server side of the interactive mode.
type Console interface {
	Title() string
	MaxLogLines() int
	// Execute runs one console line and returns text to show.
	Execute(line string) (string, error)
	Shutdown()
}

// TUI represents the terminal user interface for interactive mode
type TUI struct {
	console   Console
	viewport  viewport.Model
	textInput textinput.Model
	logs      []string
	logMutex  sync.Mutex
	ready     bool
	width     int
	height    int
}

// New creates a new TUI instance
func New(console Console) *TUI {
	ti := textinput.New()
	ti.Placeholder = "/motd <text>, /max <n>, /animate on|off, /stats"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &TUI{
		console:   console,
		textInput: ti,
		logs:      []string{},
	}
}

func (t *TUI) Init() tea.Cmd {
	return textinput.Blink
}

func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			t.console.Shutdown()
			return t, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(t.textInput.Value())
			if input != "" {
				t.AddLog(fmt.Sprintf("> %s", input))
				out, err := t.console.Execute(input)
				if err != nil {
					t.AddLog(errorStyle.Render(err.Error()))
				} else if out != "" {
					t.AddLog(out)
				}
				t.textInput.SetValue("")
				t.refresh()
			}
			return t, nil
		}

	case tea.WindowSizeMsg:
		if !t.ready {
			t.viewport = viewport.New(msg.Width, msg.Height-3)
			t.viewport.SetContent(t.renderLogs())
			t.ready = true
		} else {
			t.viewport.Width = msg.Width
			t.viewport.Height = msg.Height - 3
		}
		t.width = msg.Width
		t.height = msg.Height
		t.textInput.Width = msg.Width - 2

	case LogMsg:
		t.AddLog(string(msg))
		t.refresh()
		return t, nil
	}

	if t.ready {
		t.viewport, cmd = t.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	t.textInput, cmd = t.textInput.Update(msg)
	cmds = append(cmds, cmd)

	return t, tea.Batch(cmds...)
}

// refresh re-renders the log viewport, following the tail only if the user
// has not scrolled up.
func (t *TUI) refresh() {
	if !t.ready {
		return
	}
	wasAtBottom := t.viewport.AtBottom()
	t.viewport.SetContent(t.renderLogs())
	if wasAtBottom {
		t.viewport.GotoBottom()
	}
}

func (t *TUI) View() string {
	if !t.ready {
		return "Initializing..."
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s",
		titleStyle.Render(t.console.Title()),
		t.viewport.View(),
		inputStyle.Render("> "+t.textInput.View()),
		helpStyle.Render("Enter: run • Ctrl+C/Esc: quit"),
	)
}

// AddLog adds a log line, keeping at most MaxLogLines.
func (t *TUI) AddLog(msg string) {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	t.logs = append(t.logs, msg)

	maxLines := t.console.MaxLogLines()
	if maxLines > 0 && len(t.logs) > maxLines {
		t.logs = t.logs[len(t.logs)-maxLines:]
	}
}

// Logs returns a copy of the buffered log lines.
func (t *TUI) Logs() []string {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	return append([]string(nil), t.logs...)
}

func (t *TUI) renderLogs() string {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	return strings.Join(t.logs, "\n")
}

// LogMsg is a message type for logging
type LogMsg string

// Writer is an io.Writer that sends output to the TUI
type Writer struct {
	program *tea.Program
}

func NewWriter(program *tea.Program) *Writer {
	return &Writer{program: program}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")
	if msg != "" {
		w.program.Send(LogMsg(msg))
	}
	return len(p), nil
}

// Start creates a new TUI program, returning the program and a writer for logging
func Start(console Console) (*tea.Program, io.Writer) {
	t := New(console)
	p := tea.NewProgram(t, tea.WithAltScreen())
	return p, NewWriter(p)
}
