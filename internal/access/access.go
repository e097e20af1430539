// Package access provides the confirmation collaborators consulted before a
// window flagged as requiring elevated access is opened.
package access

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
)

// Request describes the window asking for elevated access.
type Request struct {
	WindowID string
	Title    string
	// Credential carries a secret supplied by the caller, if any.
	Credential string
}

// Checker decides whether an elevated window may open. Implementations may
// block (for instance waiting on a user prompt) and must honor ctx.
type Checker interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, req Request) (bool, error)

// Confirm implements Checker.
func (f CheckerFunc) Confirm(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// Mode selects the built-in checker.
type Mode string

const (
	ModeAllow      Mode = "allow"
	ModeDeny       Mode = "deny"
	ModePassphrase Mode = "passphrase"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAllow:
		return ModeAllow, nil
	case ModeDeny:
		return ModeDeny, nil
	case ModePassphrase:
		return ModePassphrase, nil
	default:
		return "", fmt.Errorf("unknown access mode %q (valid: allow, deny, passphrase)", s)
	}
}

// Static answers every request the same way.
type Static bool

// Confirm implements Checker.
func (s Static) Confirm(ctx context.Context, _ Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// Passphrase grants requests whose credential matches the configured secret.
type Passphrase struct {
	Secret string
}

// Confirm implements Checker.
func (p Passphrase) Confirm(ctx context.Context, req Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.Secret == "" || req.Credential == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(p.Secret), []byte(req.Credential)) == 1, nil
}

// New builds the checker for mode.
func New(mode Mode, secret string) (Checker, error) {
	switch mode {
	case ModeAllow:
		return Static(true), nil
	case ModeDeny:
		return Static(false), nil
	case ModePassphrase:
		if secret == "" {
			return nil, fmt.Errorf("access mode %q requires a passphrase", mode)
		}
		return Passphrase{Secret: secret}, nil
	default:
		return nil, fmt.Errorf("unknown access mode %q", mode)
	}
}

// Session remembers a successful confirmation so later elevated windows open
// without asking again, until Revoke is called.
type Session struct {
	inner Checker

	mu      sync.Mutex
	granted bool
}

// NewSession wraps inner with grant caching.
func NewSession(inner Checker) *Session {
	return &Session{inner: inner}
}

// Confirm implements Checker.
func (s *Session) Confirm(ctx context.Context, req Request) (bool, error) {
	s.mu.Lock()
	granted := s.granted
	s.mu.Unlock()
	if granted {
		return true, nil
	}

	ok, err := s.inner.Confirm(ctx, req)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	s.granted = true
	s.mu.Unlock()
	return true, nil
}

// Granted reports whether a confirmation is cached.
func (s *Session) Granted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted
}

// Revoke forgets a cached confirmation.
func (s *Session) Revoke() {
	s.mu.Lock()
	s.granted = false
	s.mu.Unlock()
}
