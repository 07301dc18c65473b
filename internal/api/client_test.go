package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcameron/medscribe/internal/session"
)

// fakeHTTP records the last request and replays a canned response.
type fakeHTTP struct {
	status   int
	body     string
	err      error
	lastReq  *http.Request
	lastBody []byte
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if req.Body != nil {
		f.lastBody, _ = io.ReadAll(req.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	body := f.body
	if body == "" {
		body = "{}"
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}

func storeWith(t *testing.T, sess *session.Session) *session.Store {
	t.Helper()
	s := session.NewStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, s.Load())
	if sess != nil {
		auth := staticAuth{sess: sess}
		_, err := s.Login(context.Background(), auth, sess.Identity.Username, "pw")
		require.NoError(t, err)
	}
	return s
}

type staticAuth struct{ sess *session.Session }

func (a staticAuth) Authenticate(context.Context, string, string) (*session.Session, error) {
	return a.sess, nil
}

func userSession() *session.Session {
	return &session.Session{Token: "tok-u", Role: session.RoleUser, Identity: session.Identity{Username: "drjones"}}
}

func adminSession() *session.Session {
	return &session.Session{Token: "tok-a", Role: session.RoleAdmin, Identity: session.Identity{Username: "root"}}
}

func TestHeaderExclusivityByRole(t *testing.T) {
	tests := []struct {
		name       string
		sess       *session.Session
		wantHeader string
		notHeader  string
	}{
		{"user role", userSession(), "X-User-Username", "X-Admin-Username"},
		{"admin role", adminSession(), "X-Admin-Username", "X-User-Username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeHTTP{body: `{"status":"ok"}`}
			c := NewWithHTTPClient("http://backend", fake, storeWith(t, tt.sess))

			_, err := c.Health(context.Background())
			require.NoError(t, err)

			assert.Equal(t, "Bearer "+tt.sess.Token, fake.lastReq.Header.Get("Authorization"))
			assert.Equal(t, tt.sess.Identity.Username, fake.lastReq.Header.Get(tt.wantHeader))
			assert.Empty(t, fake.lastReq.Header.Get(tt.notHeader))
			assert.NotEmpty(t, fake.lastReq.Header.Get("X-Request-ID"))
		})
	}
}

func TestNoSessionNoAuthHeaders(t *testing.T) {
	fake := &fakeHTTP{body: `{"status":"ok"}`}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, nil))

	_, err := c.Health(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fake.lastReq.Header.Get("Authorization"))
	assert.Empty(t, fake.lastReq.Header.Get("X-User-Username"))
	assert.Empty(t, fake.lastReq.Header.Get("X-Admin-Username"))
}

func TestAuthFailureTearsDownSession(t *testing.T) {
	// Any call answering 401 must leave the store empty, whichever endpoint
	// triggered it.
	calls := []func(c *Client) error{
		func(c *Client) error { _, err := c.SendChat(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil); return err },
		func(c *Client) error { return c.ClearChatSession(context.Background(), "s") },
		func(c *Client) error { _, err := c.MemoryStats(context.Background()); return err },
	}

	for i, call := range calls {
		store := storeWith(t, userSession())
		redirected := false
		store.SetTeardownHook(func() { redirected = true })

		fake := &fakeHTTP{status: http.StatusUnauthorized, body: `{"detail":"token expired"}`}
		c := NewWithHTTPClient("http://backend", fake, store)

		err := call(c)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr, "call %d", i)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "token expired", apiErr.Detail)
		assert.Nil(t, store.Current(), "call %d left a session behind", i)
		assert.True(t, redirected, "call %d skipped the redirect hook", i)
	}
}

func TestNonAuthErrorKeepsSession(t *testing.T) {
	store := storeWith(t, userSession())
	fake := &fakeHTTP{status: http.StatusBadGateway, body: `{"detail":"upstream flaked"}`}
	c := NewWithHTTPClient("http://backend", fake, store)

	_, err := c.SendChat(context.Background(), ChatRequest{SessionID: "s", Message: "m"}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream flaked", apiErr.Detail)
	assert.NotNil(t, store.Current())
}

func TestTransportErrorWrapped(t *testing.T) {
	store := storeWith(t, userSession())
	fake := &fakeHTTP{err: errors.New("connection refused")}
	c := NewWithHTTPClient("http://backend", fake, store)

	_, err := c.Health(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
	assert.NotNil(t, store.Current())
}

func TestSendChatJSONWhenNoFiles(t *testing.T) {
	fake := &fakeHTTP{body: `{"response":"done","llm_provider":"openai","model":"gpt-4o","session_id":"tok-u"}`}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, userSession()))

	resp, err := c.SendChat(context.Background(), ChatRequest{SessionID: "tok-u", Message: "hello", TaskName: "radiology"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/json", fake.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, http.MethodPost, fake.lastReq.Method)
	assert.Equal(t, "/chat/", fake.lastReq.URL.Path)
	assert.JSONEq(t, `{"session_id":"tok-u","message":"hello","task_name":"radiology"}`, string(fake.lastBody))
	assert.Equal(t, "done", resp.Response)
	assert.Equal(t, "openai", resp.LLMProvider)
	assert.Equal(t, "gpt-4o", resp.Model)
}

func TestSendChatMultipartWithFiles(t *testing.T) {
	fake := &fakeHTTP{body: `{"response":"done","llm_provider":"p","model":"m","session_id":"tok-u"}`}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, userSession()))

	files := []Attachment{
		{Name: "scan.wav", MIMEType: "audio/wav", Size: 4, Content: bytes.NewReader([]byte("data"))},
		{Name: "notes.txt", MIMEType: "text/plain", Size: 5, Content: strings.NewReader("notes")},
	}
	_, err := c.SendChat(context.Background(), ChatRequest{SessionID: "tok-u", Message: "dictation"}, files)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(fake.lastReq.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	r := multipart.NewReader(bytes.NewReader(fake.lastBody), params["boundary"])
	form, err := r.ReadForm(1 << 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"tok-u"}, form.Value["session_id"])
	assert.Equal(t, []string{"dictation"}, form.Value["message"])
	assert.NotContains(t, form.Value, "task_name")
	require.Len(t, form.File["files"], 2)
	assert.Equal(t, "scan.wav", form.File["files"][0].Filename)
	assert.Equal(t, "notes.txt", form.File["files"][1].Filename)
}

func TestClearChatSessionEscapesToken(t *testing.T) {
	fake := &fakeHTTP{}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, userSession()))

	require.NoError(t, c.ClearChatSession(context.Background(), "tok/with?weird"))
	assert.Equal(t, http.MethodDelete, fake.lastReq.Method)
	assert.Equal(t, "/chat/sessions/tok%2Fwith%3Fweird", fake.lastReq.URL.RawPath)
}

func TestAuthenticate(t *testing.T) {
	fake := &fakeHTTP{body: `{"access_token":"tok-1","user_type":"admin","user":{"username":"root","full_name":"Root","email":"r@x.io"}}`}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, nil))

	sess, err := c.Authenticate(context.Background(), "root", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", fake.lastReq.URL.Path)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, session.RoleAdmin, sess.Role)
	assert.Equal(t, "root", sess.Identity.Username)
}

func TestAuthenticateRejected(t *testing.T) {
	fake := &fakeHTTP{status: http.StatusUnauthorized, body: `{"detail":"invalid credentials"}`}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, nil))

	_, err := c.Authenticate(context.Background(), "root", "wrong")
	var authErr *session.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid credentials", authErr.Detail)
}

func TestCreateUser(t *testing.T) {
	fake := &fakeHTTP{}
	c := NewWithHTTPClient("http://backend", fake, storeWith(t, adminSession()))

	err := c.CreateUser(context.Background(), NewUser{Username: "newdoc", Password: "secret1", Email: "n@clinic.org", FullName: "New Doc"})
	require.NoError(t, err)
	assert.Equal(t, "/auth/users", fake.lastReq.URL.Path)
	assert.JSONEq(t, `{"username":"newdoc","password":"secret1","email":"n@clinic.org","full_name":"New Doc"}`, string(fake.lastBody))
}
