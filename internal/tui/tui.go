// Package tui provides the Bubble Tea chat interface for the transcription
// assistant.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
	msstrings "github.com/pcameron/medscribe/internal/strings"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	busyInputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
)

// stagedFile is an attachment queued for the next send.
type stagedFile struct {
	path string
	name string
	mime string
	size int64
}

// Model is the chat TUI model.
type Model struct {
	pipeline *chat.Pipeline
	sessions *session.Store
	client   *api.Client

	ready    bool
	quitting bool
	expired  bool
	width    int
	height   int

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Sticky per-session formatting options; attachments clear after send.
	taskName    string
	grammar     string
	template    string
	reportType  string
	attachments []stagedFile

	// Transient output from slash commands, shown above the input.
	info string
}

// New creates the chat model. The session must already be resolved; the
// route guard in cmd gates entry before the program starts.
func New(pipeline *chat.Pipeline, sessions *session.Store, client *api.Client) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type transcription text, or /help"
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		pipeline: pipeline,
		sessions: sessions,
		client:   client,
		input:    ta,
		spinner:  sp,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if msg.Alt {
				break // Alt+Enter inserts a newline via the textarea
			}
			return m, m.submit()
		}

	case sessionExpiredMsg:
		m.expired = true
		m.quitting = true
		return m, tea.Quit

	case sendDoneMsg:
		if msg.err != nil {
			m.info = msg.err.Error()
			// A failed open never reached the backend; put the staged
			// files back instead of making the user re-attach them.
			m.attachments = append(m.attachments, msg.staged...)
		}
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case clearDoneMsg:
		m.refreshTranscript()
		return m, nil

	case statsMsg:
		if msg.err != nil {
			m.info = "stats failed: " + msg.err.Error()
		} else {
			m.info = formatStats(msg.stats)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// The user entry is appended before dispatch; redraw on every
		// tick so it shows while the reply is still in flight.
		if m.pipeline.Loading() {
			m.refreshTranscript()
		}
		return m, cmd
	}

	if !m.pipeline.Loading() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit routes Enter: slash command or message send.
func (m *Model) submit() tea.Cmd {
	if m.pipeline.Loading() {
		return nil
	}

	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return nil
	}

	if isSlashCommand(input) {
		m.input.Reset()
		return m.executeSlashCommand(input)
	}

	m.input.Reset()
	m.info = ""
	files := m.attachments
	m.attachments = nil
	cmd := m.sendCmd(input, files)
	m.refreshTranscript()
	return cmd
}

func (m *Model) layout() {
	inputHeight := m.input.Height() + 2 // border
	chromeHeight := 1 + 1 + 1           // title, notice line, status bar
	vh := m.height - inputHeight - chromeHeight
	if vh < 3 {
		vh = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vh)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vh
	}
	m.input.SetWidth(m.width - 4)
}

// refreshTranscript re-renders the conversation into the viewport.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	msgs := m.pipeline.Conversation().Messages()
	if len(msgs) == 0 {
		return metaStyle.Render("No messages yet. Paste dictation text and press Enter.")
	}

	width := m.width - 2
	var sb strings.Builder
	for _, msg := range msgs {
		ts := metaStyle.Render(msg.Timestamp.Format("15:04:05"))
		switch msg.Kind {
		case chat.KindUser:
			sb.WriteString(ts + " " + userStyle.Render("you") + "\n")
			sb.WriteString(textStyle.Render(msstrings.WordWrap(msg.Content, width)) + "\n")
			if len(msg.Files) > 0 {
				names := make([]string, len(msg.Files))
				for i, f := range msg.Files {
					names[i] = f.Name
				}
				sb.WriteString(metaStyle.Render("attached: "+strings.Join(names, ", ")) + "\n")
			}
		case chat.KindAssistant:
			attribution := ""
			if msg.Provider != "" {
				attribution = " " + metaStyle.Render("("+msg.Provider+"/"+msg.Model+")")
			}
			sb.WriteString(ts + " " + assistantStyle.Render("assistant") + attribution + "\n")
			sb.WriteString(textStyle.Render(msstrings.WordWrap(msg.Content, width)) + "\n")
		case chat.KindError:
			sb.WriteString(ts + " " + errorStyle.Render(msg.Content) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		if m.expired {
			return "Session expired. Run 'medscribe login' to sign in again.\n"
		}
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("medscribe") + "\n")
	sb.WriteString(m.viewport.View() + "\n")
	sb.WriteString(m.noticeLine() + "\n")

	if m.pipeline.Loading() {
		sb.WriteString(busyInputStyle.Render(m.spinner.View() + " waiting for the assistant..."))
	} else {
		sb.WriteString(inputBorderStyle.Render(m.input.View()))
	}
	sb.WriteString("\n")
	sb.WriteString(m.statusBar())
	return sb.String()
}

func (m *Model) noticeLine() string {
	if notice := m.pipeline.Notice(); notice != "" {
		return noticeStyle.Render("! " + notice)
	}
	if m.info != "" {
		return metaStyle.Render(msstrings.TruncateRunes(strings.ReplaceAll(m.info, "\n", " · "), m.width-1))
	}
	return ""
}

func (m *Model) statusBar() string {
	sess := m.sessions.Current()
	user := "-"
	role := "-"
	if sess != nil {
		user = sess.Identity.Username
		role = string(sess.Role)
	}

	conn := "connected"
	if !m.pipeline.Connected() {
		conn = "disconnected"
	}

	parts := []string{user + " (" + role + ")", conn}
	if m.taskName != "" {
		parts = append(parts, "task: "+m.taskName)
	}
	if m.reportType != "" {
		parts = append(parts, "type: "+m.reportType)
	}
	if len(m.attachments) > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) staged", len(m.attachments)))
	}
	return statusBarStyle.Width(m.width).Render(strings.Join(parts, " │ "))
}
