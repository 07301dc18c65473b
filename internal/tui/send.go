package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
)

// sendDoneMsg signals a completed send; the outcome lives in pipeline state.
type sendDoneMsg struct {
	err    error        // only set when attachments could not be opened
	staged []stagedFile // handed back for re-staging when err is set
}

type clearDoneMsg struct{}

type statsMsg struct {
	stats map[string]any
	err   error
}

// sessionExpiredMsg is injected by the session teardown hook when any call
// answered 401.
type sessionExpiredMsg struct{}

// Run starts the chat interface and blocks until exit.
func Run(pipeline *chat.Pipeline, sessions *session.Store, client *api.Client) error {
	m := New(pipeline, sessions, client)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Auth failure on any in-flight call quits the TUI back to the login
	// hint instead of mutating a dead session.
	sessions.SetTeardownHook(func() {
		p.Send(sessionExpiredMsg{})
	})
	defer sessions.SetTeardownHook(nil)

	_, err := p.Run()
	return err
}

// sendCmd dispatches one message through the pipeline off the UI goroutine.
func (m *Model) sendCmd(text string, files []stagedFile) tea.Cmd {
	opts := chat.Options{
		TranscriptionType: m.reportType,
		OutputTemplate:    m.template,
		GrammarRules:      m.grammar,
	}
	task := m.taskName
	pipeline := m.pipeline

	return func() tea.Msg {
		atts, closeAll, err := openAttachments(files)
		if err != nil {
			return sendDoneMsg{err: err, staged: files}
		}
		defer closeAll()

		// Precondition failures are already ruled out by the route guard
		// and the loading gate; captured failures land in pipeline state.
		_ = pipeline.Send(context.Background(), text, opts, atts, task)
		return sendDoneMsg{}
	}
}

func (m *Model) clearCmd() tea.Cmd {
	pipeline := m.pipeline
	return func() tea.Msg {
		_ = pipeline.ClearSession(context.Background())
		return clearDoneMsg{}
	}
}

func (m *Model) statsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		stats, err := client.MemoryStats(context.Background())
		return statsMsg{stats: stats, err: err}
	}
}

// openAttachments opens staged files for dispatch. Content is streamed into
// the multipart body and not retained.
func openAttachments(files []stagedFile) ([]api.Attachment, func(), error) {
	var handles []*os.File
	closeAll := func() {
		for _, h := range handles {
			h.Close()
		}
	}

	atts := make([]api.Attachment, 0, len(files))
	for _, f := range files {
		h, err := os.Open(f.path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", f.name, err)
		}
		handles = append(handles, h)
		atts = append(atts, api.Attachment{
			Name:     f.name,
			MIMEType: f.mime,
			Size:     f.size,
			Content:  h,
		})
	}
	return atts, closeAll, nil
}

func formatStats(stats map[string]any) string {
	if len(stats) == 0 {
		return "no memory statistics reported"
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, stats[k]))
	}
	return strings.Join(parts, " ")
}
