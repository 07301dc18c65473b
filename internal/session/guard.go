package session

// Requirement is the access level a surface demands.
type Requirement int

const (
	// RequireAuthenticated admits any logged-in user.
	RequireAuthenticated Requirement = iota
	// RequireAdmin admits only admins.
	RequireAdmin
)

// Decision is the guard outcome: render, or redirect where.
type Decision int

const (
	Allow Decision = iota
	// RedirectLogin means no session exists.
	RedirectLogin
	// RedirectChat means the user is authenticated but lacks the role.
	RedirectChat
)

// Guard gates a surface on the current session, mirroring the web client's
// protected routes. Load resolves the session before any command runs, so
// callers never observe a pending state.
func (s *Store) Guard(req Requirement) Decision {
	sess := s.Current()
	if sess == nil {
		return RedirectLogin
	}
	if req == RequireAdmin && sess.Role != RoleAdmin {
		return RedirectChat
	}
	return Allow
}
