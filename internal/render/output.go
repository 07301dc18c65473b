// Package render provides terminal output formatting for non-TUI commands.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. pretty=false yields plain machine-friendly
// lines (also used when NO_COLOR is set).
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Health formats the backend liveness probe result.
func (r *Renderer) Health(status string, reachable bool) string {
	if !r.pretty {
		if reachable {
			return fmt.Sprintf("health: %s", status)
		}
		return "health: unreachable"
	}
	if reachable {
		return fmt.Sprintf("%s backend %s", color.GreenString("✓"), status)
	}
	return fmt.Sprintf("%s backend unreachable", color.RedString("✗"))
}

// Provider formats the active LLM provider metadata.
func (r *Renderer) Provider(provider, model string) string {
	if !r.pretty {
		return fmt.Sprintf("provider: %s model: %s", provider, model)
	}
	return fmt.Sprintf("%s %s (%s)", color.CyanString("provider"), provider, color.HiBlackString(model))
}

// Whoami formats the current session identity.
func (r *Renderer) Whoami(sess *session.Session) string {
	if sess == nil {
		if r.pretty {
			return color.YellowString("not logged in")
		}
		return "not logged in"
	}
	if !r.pretty {
		return fmt.Sprintf("user: %s role: %s", sess.Identity.Username, sess.Role)
	}
	role := string(sess.Role)
	if sess.Role == session.RoleAdmin {
		role = color.MagentaString(role)
	}
	return fmt.Sprintf("%s %s (%s)", color.GreenString("✓"), sess.Identity.Username, role)
}

// MemoryStats formats the admin conversation-memory diagnostic.
func (r *Renderer) MemoryStats(stats map[string]any) string {
	if len(stats) == 0 {
		return "No memory statistics reported"
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Conversation Memory\n"))
		sb.WriteString(strings.Repeat("─", 40) + "\n")
	}
	for _, k := range keys {
		if r.pretty {
			fmt.Fprintf(&sb, "%s %v\n", color.HiBlackString(k+":"), stats[k])
		} else {
			fmt.Fprintf(&sb, "%s=%v\n", k, stats[k])
		}
	}
	return sb.String()
}

// Transcript formats conversation entries for one-shot sends.
func (r *Renderer) Transcript(msgs []chat.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		r.formatMessage(&sb, m)
	}
	return sb.String()
}

func (r *Renderer) formatMessage(sb *strings.Builder, m chat.Message) {
	timeStr := m.Timestamp.Format("15:04:05")

	switch m.Kind {
	case chat.KindUser:
		label := "you"
		if r.pretty {
			label = color.GreenString("you")
		}
		fmt.Fprintf(sb, "[%s] %s: %s\n", timeStr, label, m.Content)
		if len(m.Files) > 0 {
			names := make([]string, len(m.Files))
			for i, f := range m.Files {
				names[i] = f.Name
			}
			attach := "attached: " + strings.Join(names, ", ")
			if r.pretty {
				attach = color.HiBlackString(attach)
			}
			fmt.Fprintf(sb, "          %s\n", attach)
		}
	case chat.KindAssistant:
		label := "assistant"
		if r.pretty {
			label = color.CyanString("assistant")
		}
		fmt.Fprintf(sb, "[%s] %s: %s\n", timeStr, label, m.Content)
		if m.Provider != "" && r.pretty {
			fmt.Fprintf(sb, "          %s\n", color.HiBlackString(m.Provider+"/"+m.Model))
		}
	case chat.KindError:
		label := "error"
		if r.pretty {
			label = color.RedString("error")
		}
		fmt.Fprintf(sb, "[%s] %s: %s\n", timeStr, label, m.Content)
	}
}

// Notice formats the error-notification slot.
func (r *Renderer) Notice(notice string) string {
	if notice == "" {
		return ""
	}
	if r.pretty {
		return color.RedString("! ") + notice
	}
	return "error: " + notice
}
