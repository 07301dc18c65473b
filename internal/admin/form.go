// Package admin implements the user-management surface: client-side
// validation of new accounts and submission to the backend.
package admin

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/logging"
)

// SuccessNoticeTTL is how long the UI shows the creation notice before it
// auto-dismisses.
const SuccessNoticeTTL = 5 // seconds

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError joins every violated rule into one human-readable message.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// Form is one pending user-creation submission.
type Form struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Validate checks every field and collects all violations; nothing is sent
// to the backend unless this passes.
func (f Form) Validate() error {
	var violations []string

	if strings.TrimSpace(f.Username) == "" {
		violations = append(violations, "Username is required")
	} else if utf8.RuneCountInString(f.Username) < 3 {
		violations = append(violations, "Username must be at least 3 characters")
	}

	if strings.TrimSpace(f.Password) == "" {
		violations = append(violations, "Password is required")
	} else if utf8.RuneCountInString(f.Password) < 6 {
		violations = append(violations, "Password must be at least 6 characters")
	}

	if strings.TrimSpace(f.Email) == "" {
		violations = append(violations, "Email is required")
	} else if !emailPattern.MatchString(f.Email) {
		violations = append(violations, "Please enter a valid email address")
	}

	if strings.TrimSpace(f.FullName) == "" {
		violations = append(violations, "Full name is required")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// UserCreator is the slice of the API client the form needs.
type UserCreator interface {
	CreateUser(ctx context.Context, u api.NewUser) error
}

var log = logging.New("admin")

// Submit validates and posts the form. On success the form is reset so the
// same value can collect the next account.
func (f *Form) Submit(ctx context.Context, backend UserCreator) error {
	if err := f.Validate(); err != nil {
		return err
	}

	err := backend.CreateUser(ctx, api.NewUser{
		Username: f.Username,
		Password: f.Password,
		Email:    f.Email,
		FullName: f.FullName,
	})
	if err != nil {
		log.Error("create_user_failed", map[string]any{"username": f.Username}, err)
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return errors.New(apiErr.Detail)
		}
		return errors.New("Failed to create user. Please try again.")
	}

	log.Info("user_created", map[string]any{"username": f.Username})
	*f = Form{}
	return nil
}
