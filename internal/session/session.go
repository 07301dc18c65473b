// Package session holds the authenticated session: the bearer token, the
// user's role and identity, and their persistence across CLI invocations.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pcameron/medscribe/internal/logging"
)

// Role selects which identity header outbound requests carry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a persisted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is the user record returned by the backend at login.
type Identity struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Session is the credential for one backend conversation. The token doubles
// as the conversation identifier on the wire; there is no separate session id.
type Session struct {
	Token    string
	Role     Role
	Identity Identity
}

// AuthError reports a failed login: bad credentials or an unreachable backend.
type AuthError struct {
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return "login failed: " + e.Detail
	}
	return "login failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Authenticator exchanges credentials for a session. Implemented by the API
// client; an interface here so the store never imports the transport.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*Session, error)
}

// credentialsFile mirrors the web client's persisted localStorage keys.
// user_data holds the identity JSON-encoded as a string, same as the original.
type credentialsFile struct {
	AccessToken string `json:"access_token"`
	UserType    string `json:"user_type"`
	UserData    string `json:"user_data"`
}

// Store owns the current session. All mutation goes through Login, Logout and
// Teardown; readers get copies. Safe for use from the TUI's send goroutine.
type Store struct {
	mu       sync.Mutex
	path     string
	current  *Session
	teardown func()
	log      *logging.Logger
}

// NewStore creates a store persisting to path. Call Load before first use.
func NewStore(path string) *Store {
	return &Store{path: path, log: logging.New("session")}
}

// Load reads persisted credentials. A missing file means no session; a
// corrupt or unrecognized file is cleared rather than half-trusted.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.current = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}

	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.clearLocked()
		return fmt.Errorf("parse credentials: %w", err)
	}

	role, err := ParseRole(f.UserType)
	if err != nil {
		s.clearLocked()
		return fmt.Errorf("parse credentials: %w", err)
	}

	var id Identity
	if f.UserData != "" {
		if err := json.Unmarshal([]byte(f.UserData), &id); err != nil {
			s.clearLocked()
			return fmt.Errorf("parse credentials: %w", err)
		}
	}

	s.current = &Session{Token: f.AccessToken, Role: role, Identity: id}
	return nil
}

// Current returns a copy of the session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// Login authenticates and persists the resulting session.
func (s *Store) Login(ctx context.Context, auth Authenticator, username, password string) (*Session, error) {
	sess, err := auth.Authenticate(ctx, username, password)
	if err != nil {
		s.log.Warn("login_failed", map[string]any{"username": username}, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(sess); err != nil {
		return nil, err
	}
	s.current = sess
	s.log.WithUser(sess.Identity.Username).Info("login", map[string]any{"role": string(sess.Role)})

	out := *sess
	return &out, nil
}

// Logout clears the session and its persisted file. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// SetTeardownHook registers the redirect performed after an authentication
// failure. The CLI prints a re-login hint; the TUI quits to the login prompt.
func (s *Store) SetTeardownHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = fn
}

// Teardown clears the session like Logout and then runs the registered
// redirect hook. Invoked by the HTTP adapter on any 401 response. The hook
// only fires when a session actually existed, so a rejected login attempt
// does not masquerade as an expiry.
func (s *Store) Teardown() {
	s.mu.Lock()
	had := s.current != nil
	s.clearLocked()
	hook := s.teardown
	s.mu.Unlock()

	if !had {
		return
	}
	s.log.Warn("session_teardown", nil, nil)
	if hook != nil {
		hook()
	}
}

func (s *Store) clearLocked() {
	s.current = nil
	os.Remove(s.path)
}

func (s *Store) persistLocked(sess *Session) error {
	userData, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	f := credentialsFile{
		AccessToken: sess.Token,
		UserType:    string(sess.Role),
		UserData:    string(userData),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
