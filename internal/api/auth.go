package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/pcameron/medscribe/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	UserType    string           `json:"user_type"`
	User        session.Identity `json:"user"`
}

// Authenticate exchanges credentials for a session. Satisfies
// session.Authenticator; the login path itself carries no auth headers
// because no session exists yet.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*session.Session, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, &session.AuthError{Detail: apiErr.Detail, Err: apiErr}
		}
		return nil, &session.AuthError{Err: err}
	}

	role, err := session.ParseRole(resp.UserType)
	if err != nil {
		return nil, &session.AuthError{Detail: "unrecognized account type", Err: err}
	}

	return &session.Session{
		Token:    resp.AccessToken,
		Role:     role,
		Identity: resp.User,
	}, nil
}

// NewUser is the POST /auth/users body, shared by the admin page and the
// in-chat settings panel in the original client.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// CreateUser registers a new account. Admin-only on the backend.
func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/users", u, nil)
}
