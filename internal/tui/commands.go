package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
)

// slashCommand is one /command handler. Handlers either mutate the model and
// return a status line, or hand back a tea.Cmd for async work.
type slashCommand struct {
	name        string
	description string
	handler     func(m *Model, args string) (string, tea.Cmd)
}

// commandOrder fixes /help listing order; maps don't.
var commandOrder = []string{
	"help", "clear", "task", "type", "grammar", "template",
	"attach", "files", "detach", "stats", "logout", "quit",
}

func builtinCommands() map[string]slashCommand {
	return map[string]slashCommand{
		"help": {
			name:        "help",
			description: "Show available commands",
			handler:     cmdHelp,
		},
		"clear": {
			name:        "clear",
			description: "Clear the conversation (here and on the backend)",
			handler:     cmdClear,
		},
		"task": {
			name:        "task",
			description: "Set or clear the task name sent with each message",
			handler:     cmdTask,
		},
		"type": {
			name:        "type",
			description: "Set the transcription type (chest-xray, ct-scan, mri, ultrasound)",
			handler:     cmdType,
		},
		"grammar": {
			name:        "grammar",
			description: "Set grammar requirements; no argument lists suggestions",
			handler:     cmdGrammar,
		},
		"template": {
			name:        "template",
			description: "Set or clear the output template",
			handler:     cmdTemplate,
		},
		"attach": {
			name:        "attach",
			description: "Stage files for the next message (glob patterns allowed)",
			handler:     cmdAttach,
		},
		"files": {
			name:        "files",
			description: "List staged attachments",
			handler:     cmdFiles,
		},
		"detach": {
			name:        "detach",
			description: "Drop all staged attachments",
			handler:     cmdDetach,
		},
		"stats": {
			name:        "stats",
			description: "Show conversation memory statistics (admin)",
			handler:     cmdStats,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and quit",
			handler:     cmdLogout,
		},
		"quit": {
			name:        "quit",
			description: "Exit the chat",
			handler:     cmdQuit,
		},
	}
}

// isSlashCommand checks if input starts with /
func isSlashCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// executeSlashCommand parses and runs a slash command.
func (m *Model) executeSlashCommand(input string) tea.Cmd {
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(input), "/"), " ", 2)
	name := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	cmd, ok := builtinCommands()[name]
	if !ok {
		m.info = fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", name)
		return nil
	}

	info, teaCmd := cmd.handler(m, args)
	m.info = info
	return teaCmd
}

func cmdHelp(_ *Model, _ string) (string, tea.Cmd) {
	cmds := builtinCommands()
	var sb strings.Builder
	for _, name := range commandOrder {
		sb.WriteString(fmt.Sprintf("/%s — %s\n", name, cmds[name].description))
	}
	return sb.String(), nil
}

func cmdClear(m *Model, _ string) (string, tea.Cmd) {
	return "clearing session...", m.clearCmd()
}

func cmdTask(m *Model, args string) (string, tea.Cmd) {
	m.taskName = args
	if args == "" {
		return "task name cleared", nil
	}
	return "task name set: " + args, nil
}

func cmdType(m *Model, args string) (string, tea.Cmd) {
	if args == "" {
		m.reportType = ""
		var titles []string
		for _, t := range chat.TranscriptionTypes {
			titles = append(titles, t.Type)
		}
		return "type cleared. available: " + strings.Join(titles, ", "), nil
	}
	for _, t := range chat.TranscriptionTypes {
		if t.Type == args {
			m.reportType = args
			return t.Title + ": " + t.Prompt, nil
		}
	}
	// Free-form types are allowed; presets are just shortcuts.
	m.reportType = args
	return "transcription type set: " + args, nil
}

func cmdGrammar(m *Model, args string) (string, tea.Cmd) {
	if args == "" {
		return "suggestions: " + strings.Join(chat.GrammarSuggestions, " · "), nil
	}
	if args == "off" {
		m.grammar = ""
		return "grammar requirements cleared", nil
	}
	m.grammar = args
	return "grammar requirements set", nil
}

func cmdTemplate(m *Model, args string) (string, tea.Cmd) {
	m.template = args
	if args == "" {
		return "output template cleared", nil
	}
	return "output template set", nil
}

func cmdAttach(m *Model, args string) (string, tea.Cmd) {
	if args == "" {
		return "usage: /attach <path or glob>", nil
	}
	staged, err := expandAttachments(args)
	if err != nil {
		return "attach failed: " + err.Error(), nil
	}
	if len(staged) == 0 {
		return "no files matched " + args, nil
	}
	m.attachments = append(m.attachments, staged...)
	return fmt.Sprintf("staged %d file(s)", len(staged)), nil
}

func cmdFiles(m *Model, _ string) (string, tea.Cmd) {
	if len(m.attachments) == 0 {
		return "no files staged", nil
	}
	names := make([]string, len(m.attachments))
	for i, f := range m.attachments {
		names[i] = fmt.Sprintf("%s (%d bytes)", f.name, f.size)
	}
	return strings.Join(names, ", "), nil
}

func cmdDetach(m *Model, _ string) (string, tea.Cmd) {
	n := len(m.attachments)
	m.attachments = nil
	return fmt.Sprintf("dropped %d staged file(s)", n), nil
}

func cmdStats(m *Model, _ string) (string, tea.Cmd) {
	if m.sessions.Guard(session.RequireAdmin) != session.Allow {
		return "stats are admin-only", nil
	}
	return "fetching stats...", m.statsCmd()
}

func cmdLogout(m *Model, _ string) (string, tea.Cmd) {
	m.sessions.Logout()
	m.quitting = true
	return "", tea.Quit
}

func cmdQuit(m *Model, _ string) (string, tea.Cmd) {
	m.quitting = true
	return "", tea.Quit
}
