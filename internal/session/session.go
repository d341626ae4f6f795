// Package session implements the server-side session state machine.
//
// A session is keyed by an opaque token carried in an HttpOnly cookie. The
// token resolves to state held in a Store — in-memory for a single process,
// Redis when multiple processes share traffic. Either way a write is visible
// to the very next request from the same client (both stores are
// read-your-writes), and logout destroys the state server-side immediately:
// an opaque revocable token, not a self-contained signed one.
//
// States:
//
//	Anonymous (no session)
//	   → Authenticated(userID)           after register/login
//	   → PendingUsername(identityHash)   after a first external login, until
//	                                     the user picks a real username
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a Store when the token resolves to nothing —
// never issued, expired, or destroyed by logout.
var ErrNotFound = errors.New("session: not found")

// State is the position of a session in the auth state machine.
type State string

const (
	// StateAuthenticated grants access to all session-scoped operations.
	StateAuthenticated State = "authenticated"
	// StatePendingUsername permits only the username-selection operation;
	// everything else redirects to complete registration.
	StatePendingUsername State = "pending_username"
)

// Session is the server-side value an opaque token resolves to.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authenticated reports whether the session may perform normal
// authenticated actions (a pending session may not).
func (s *Session) Authenticated() bool {
	return s != nil && s.State == StateAuthenticated
}

// Pending reports whether the session is waiting on username selection.
func (s *Session) Pending() bool {
	return s != nil && s.State == StatePendingUsername
}

// Store persists sessions keyed by token. Implementations must be safe for
// concurrent use by request handlers.
type Store interface {
	// Put saves the session under its token for the store's TTL,
	// overwriting any previous value.
	Put(ctx context.Context, s *Session) error
	// Get resolves a token. Returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (*Session, error)
	// Delete destroys the session unconditionally. Deleting an unknown
	// token is not an error.
	Delete(ctx context.Context, token string) error
}

// New creates a session in the given state with a fresh opaque token.
func New(userID string, state State) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    userID,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// newToken returns 32 hex characters of CSPRNG output. The token is a pure
// capability — it encodes nothing, so it must be unguessable.
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
