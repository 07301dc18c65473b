package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/pcameron/medscribe/internal/session"
)

var errNotLoggedIn = errors.New("not logged in. Run 'medscribe login' first")
var errAdminOnly = errors.New("this command requires an admin account")

// guard translates a route-guard decision into a command error. Cobra
// commands use this in PreRunE so RunE only sees an authorized session.
func guard(req session.Requirement) error {
	switch sessions.Guard(req) {
	case session.Allow:
		return nil
	case session.RedirectLogin:
		return errNotLoggedIn
	default:
		return errAdminOnly
	}
}

// promptLine reads one trimmed line from stdin with a visible prompt.
func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing it.
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
