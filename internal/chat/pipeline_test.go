package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/session"
)

// fakeBackend scripts SendChat / ClearChatSession outcomes.
type fakeBackend struct {
	mu         sync.Mutex
	sendResp   *api.ChatResponse
	sendErr    error
	clearErr   error
	sendCalls  int
	clearCalls int
	lastReq    api.ChatRequest
	lastFiles  []api.Attachment

	// block, when non-nil, stalls SendChat until closed.
	block chan struct{}
}

func (f *fakeBackend) SendChat(_ context.Context, req api.ChatRequest, files []api.Attachment) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.sendCalls++
	f.lastReq = req
	f.lastFiles = files
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	resp := f.sendResp
	if resp == nil {
		resp = &api.ChatResponse{Response: "ok", LLMProvider: "openai", Model: "gpt-4o", SessionID: req.SessionID}
	}
	return resp, nil
}

func (f *fakeBackend) ClearChatSession(context.Context, string) error {
	f.mu.Lock()
	f.clearCalls++
	f.mu.Unlock()
	return f.clearErr
}

type staticAuth struct{ sess *session.Session }

func (a staticAuth) Authenticate(context.Context, string, string) (*session.Session, error) {
	return a.sess, nil
}

func loggedInStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, s.Load())
	auth := staticAuth{sess: &session.Session{
		Token:    "tok-1",
		Role:     session.RoleUser,
		Identity: session.Identity{Username: "drjones"},
	}}
	_, err := s.Login(context.Background(), auth, "drjones", "pw")
	require.NoError(t, err)
	return s
}

func emptyStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, s.Load())
	return s
}

func TestSendOrdering(t *testing.T) {
	// The user entry always precedes the assistant entry.
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))

	require.NoError(t, p.Send(context.Background(), "Patient has mild cough", Options{}, nil, ""))

	msgs := p.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, KindUser, msgs[0].Kind)
	assert.Equal(t, KindAssistant, msgs[1].Kind)
	assert.False(t, msgs[1].Timestamp.Before(msgs[0].Timestamp))
	assert.True(t, msgs[0].ID < msgs[1].ID, "ulid ids should be time-ordered")
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	// Empty and whitespace-only input produce no state change and no call.
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))

	for _, input := range []string{"", "   ", "\n\t "} {
		require.NoError(t, p.Send(context.Background(), input, Options{}, nil, ""))
	}

	assert.Zero(t, p.Conversation().Len())
	assert.Zero(t, backend.sendCalls)
	assert.False(t, p.Loading())
}

func TestSendWithoutSession(t *testing.T) {
	// No session means no network call and a NotAuthenticated error.
	backend := &fakeBackend{}
	p := NewPipeline(backend, emptyStore(t))

	err := p.Send(context.Background(), "hello", Options{}, nil, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, backend.sendCalls)
	assert.Zero(t, p.Conversation().Len())
}

func TestSendComposesAndAddresses(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))

	files := []api.Attachment{{Name: "scan.wav", MIMEType: "audio/wav", Size: 9, Content: strings.NewReader("audiodata")}}
	require.NoError(t, p.Send(context.Background(), "  dictation text  ", Options{GrammarRules: "Fix tense"}, files, "radiology"))

	// The session token is the conversation key on the wire.
	assert.Equal(t, "tok-1", backend.lastReq.SessionID)
	assert.Equal(t, "radiology", backend.lastReq.TaskName)
	assert.Equal(t, "dictation text\n\nGrammar Requirements:\nFix tense\n\nAttached Files: scan.wav", backend.lastReq.Message)
	require.Len(t, backend.lastFiles, 1)

	msgs := p.Conversation().Messages()
	require.Len(t, msgs, 2)
	// The log keeps the trimmed raw text plus file metadata, not the
	// augmented body.
	assert.Equal(t, "dictation text", msgs[0].Content)
	assert.Equal(t, []FileRef{{Name: "scan.wav", MIMEType: "audio/wav", SizeBytes: 9}}, msgs[0].Files)
	assert.Equal(t, "radiology", msgs[0].TaskName)
	assert.Equal(t, "openai", msgs[1].Provider)
	assert.Equal(t, "gpt-4o", msgs[1].Model)
}

func TestSendFailureRecordsApologyAndNotice(t *testing.T) {
	backend := &fakeBackend{sendErr: &api.Error{Status: 500, Detail: "model overloaded"}}
	p := NewPipeline(backend, loggedInStore(t))

	require.NoError(t, p.Send(context.Background(), "hello", Options{}, nil, ""))

	msgs := p.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, KindUser, msgs[0].Kind) // user entry survives the failure
	assert.Equal(t, KindError, msgs[1].Kind)
	assert.Equal(t, apology, msgs[1].Content)
	assert.Equal(t, "model overloaded", p.Notice())
	assert.False(t, p.Connected())
	assert.False(t, p.Loading())
}

func TestSendFailureGenericNotice(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("dial tcp: connection refused")}
	p := NewPipeline(backend, loggedInStore(t))

	require.NoError(t, p.Send(context.Background(), "hello", Options{}, nil, ""))
	assert.Equal(t, "Failed to send message", p.Notice())
}

func TestSendSuccessRestoresConnected(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("down")}
	p := NewPipeline(backend, loggedInStore(t))

	require.NoError(t, p.Send(context.Background(), "first", Options{}, nil, ""))
	require.False(t, p.Connected())

	backend.sendErr = nil
	require.NoError(t, p.Send(context.Background(), "second", Options{}, nil, ""))
	assert.True(t, p.Connected())
	assert.Empty(t, p.Notice())
}

func TestSendSerialization(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	p := NewPipeline(backend, loggedInStore(t))

	done := make(chan error, 1)
	go func() {
		done <- p.Send(context.Background(), "slow", Options{}, nil, "")
	}()

	// Wait for the first send to be in flight.
	require.Eventually(t, p.Loading, time.Second, time.Millisecond)

	err := p.Send(context.Background(), "overlap", Options{}, nil, "")
	assert.ErrorIs(t, err, ErrRequestInFlight)

	close(backend.block)
	require.NoError(t, <-done)
	assert.False(t, p.Loading())
	assert.Equal(t, 1, backend.sendCalls)
}

func TestStaleResponseDiscardedAfterClear(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	p := NewPipeline(backend, loggedInStore(t))

	done := make(chan error, 1)
	go func() {
		done <- p.Send(context.Background(), "slow", Options{}, nil, "")
	}()
	require.Eventually(t, p.Loading, time.Second, time.Millisecond)

	// Clearing bumps the epoch while the send is in flight.
	p.Conversation().Clear()
	close(backend.block)
	require.NoError(t, <-done)

	assert.Zero(t, p.Conversation().Len(), "stale reply applied to cleared conversation")
	assert.False(t, p.Loading())
}

func TestClearSessionSuccess(t *testing.T) {
	// A successful clear empties the log and the notification slot.
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))

	require.NoError(t, p.Send(context.Background(), "one", Options{}, nil, ""))
	require.NoError(t, p.Send(context.Background(), "two", Options{}, nil, "")) // 4 entries now
	require.NotZero(t, p.Conversation().Len())

	require.NoError(t, p.ClearSession(context.Background()))
	assert.Zero(t, p.Conversation().Len())
	assert.Empty(t, p.Notice())
	assert.Equal(t, 1, backend.clearCalls)
}

func TestClearSessionFailure(t *testing.T) {
	// A failed clear leaves the log untouched and sets a notification.
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))
	require.NoError(t, p.Send(context.Background(), "one", Options{}, nil, ""))
	before := p.Conversation().Len()

	backend.clearErr = &api.Error{Status: 500}
	require.NoError(t, p.ClearSession(context.Background()))

	assert.Equal(t, before, p.Conversation().Len())
	assert.Equal(t, "Failed to clear session", p.Notice())
}

func TestClearSessionWithoutSession(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPipeline(backend, emptyStore(t))

	err := p.ClearSession(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, backend.clearCalls)
}

func TestMessagesAreSnapshots(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPipeline(backend, loggedInStore(t))
	require.NoError(t, p.Send(context.Background(), "hello", Options{}, nil, ""))

	snap := p.Conversation().Messages()
	snap[0].Content = "mutated"
	assert.Equal(t, "hello", p.Conversation().Messages()[0].Content)
}
