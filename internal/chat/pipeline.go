package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/logging"
	"github.com/pcameron/medscribe/internal/session"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and
	// none exists. It never reaches the network.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRequestInFlight is returned when a send overlaps an outstanding
	// one. Sends are hard-serialized per conversation.
	ErrRequestInFlight = errors.New("a request is already in flight")
)

// apology is the fixed user-facing text recorded in the conversation when a
// send fails; the backend's own detail goes to the notification slot instead.
const apology = "Sorry, I encountered an error processing your request. Please try again."

const genericSendFailure = "Failed to send message"
const genericClearFailure = "Failed to clear session"

// Backend is the slice of the API client the pipeline uses.
type Backend interface {
	SendChat(ctx context.Context, req api.ChatRequest, files []api.Attachment) (*api.ChatResponse, error)
	ClearChatSession(ctx context.Context, sessionID string) error
}

// Pipeline turns user input into one authenticated request and folds the
// reply back into conversation state. All failures resolve to state changes
// or a captured notification; only local precondition errors are returned.
type Pipeline struct {
	mu        sync.Mutex
	backend   Backend
	sessions  *session.Store
	conv      *Conversation
	loading   bool
	connected bool
	notice    string
	log       *logging.Logger
}

// NewPipeline creates a pipeline over an empty conversation.
func NewPipeline(backend Backend, sessions *session.Store) *Pipeline {
	return &Pipeline{
		backend:   backend,
		sessions:  sessions,
		conv:      NewConversation(),
		connected: true,
		log:       logging.New("chat"),
	}
}

// Conversation exposes the pipeline's message log.
func (p *Pipeline) Conversation() *Conversation { return p.conv }

// Loading reports whether a send is in flight. The UI disables resend while
// true.
func (p *Pipeline) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Connected reports the state of the last backend round-trip.
func (p *Pipeline) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Notice returns the error-notification slot, "" when clear. This is
// distinct from error entries in the conversation log.
func (p *Pipeline) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// ClearNotice empties the notification slot.
func (p *Pipeline) ClearNotice() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = ""
}

// Send submits one message. The user's entry is appended before any network
// activity, so it always precedes the assistant or error entry regardless of
// latency. Empty input (after trimming) is deliberately a silent no-op.
func (p *Pipeline) Send(ctx context.Context, text string, opts Options, files []api.Attachment, taskName string) error {
	sess := p.sessions.Current()
	if sess == nil {
		return ErrNotAuthenticated
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	refs := make([]FileRef, len(files))
	for i, f := range files {
		refs[i] = FileRef{Name: f.Name, MIMEType: f.MIMEType, SizeBytes: f.Size}
	}

	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return ErrRequestInFlight
	}
	p.loading = true
	p.notice = ""

	userMsg := newMessage(KindUser, trimmed)
	userMsg.Files = refs
	userMsg.TaskName = taskName
	p.conv.append(userMsg)
	epoch := p.conv.Epoch()
	p.mu.Unlock()

	body := Compose(trimmed, opts, refs)
	resp, err := p.backend.SendChat(ctx, api.ChatRequest{
		// The bearer token doubles as the backend conversation key.
		SessionID: sess.Token,
		Message:   body,
		TaskName:  taskName,
	}, files)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	// The conversation was cleared while we were in flight; the reply
	// belongs to a log that no longer exists.
	if p.conv.Epoch() != epoch {
		return nil
	}

	if err != nil {
		p.connected = false
		p.notice = noticeFor(err, genericSendFailure)
		p.conv.append(newMessage(KindError, apology))
		p.log.Error("send_failed", map[string]any{"files": len(files)}, err)
		return nil
	}

	aiMsg := newMessage(KindAssistant, resp.Response)
	aiMsg.Provider = resp.LLMProvider
	aiMsg.Model = resp.Model
	aiMsg.SessionID = resp.SessionID
	p.conv.append(aiMsg)
	p.connected = true
	return nil
}

// ClearSession asks the backend to drop the conversation keyed by the
// session token, then empties the local log. On failure the log is left
// untouched and the notification slot is set.
func (p *Pipeline) ClearSession(ctx context.Context) error {
	sess := p.sessions.Current()
	if sess == nil {
		return ErrNotAuthenticated
	}

	if err := p.backend.ClearChatSession(ctx, sess.Token); err != nil {
		p.mu.Lock()
		p.notice = genericClearFailure
		p.mu.Unlock()
		p.log.Error("clear_failed", nil, err)
		return nil
	}

	p.mu.Lock()
	p.conv.Clear()
	p.notice = ""
	p.mu.Unlock()
	return nil
}

// noticeFor prefers the backend's detail message over the generic fallback.
func noticeFor(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
