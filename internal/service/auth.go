// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate, enforce the
// rules, and orchestrate repositories; repositories own the SQL. Services
// accept primitives and return domain errors from apperror — they know
// nothing about status codes or cookies.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/avatar"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
	"github.com/sakif/microblog/internal/session"
)

const MaxUsernameLength = 30

// AvatarStorage persists a rendered avatar and returns its reference.
// *avatar.DirStore implements it; tests substitute an in-memory fake.
type AvatarStorage interface {
	Save(userID string, data []byte) (string, error)
}

// AuthService owns every session transition: register, login, external
// login, username completion, logout — plus identity provisioning (user row
// and avatar image, each created exactly once per new identity).
//
// SECURITY NOTE: local login trusts the bare username; there is no password
// or other secret. This reproduces the source system's behavior and is a
// known gap, not a feature. Anyone deploying this beyond a demo must add a
// credential step.
type AuthService struct {
	users    repository.UserRepository
	sessions session.Store
	avatars  AvatarStorage
	logger   *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions session.Store,
	avatars AvatarStorage,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		avatars:  avatars,
		logger:   logger,
	}
}

// AuthResult bundles the resolved user with the session written to the
// store, so the handler can set the cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Session *session.Session
}

// Register creates a local account and an authenticated session.
// Fails with ErrConflict if the username is occupied; the uniqueness check
// is atomic with the insert down in the repository.
func (s *AuthService) Register(ctx context.Context, username string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		IdentityHash: auth.LocalCredential{Username: username}.IdentityHash(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("registering %q: %w", username, err)
	}

	s.provisionAvatar(ctx, user, username)

	sess, err := s.startSession(ctx, user.ID, session.StateAuthenticated)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", username),
	)

	return &AuthResult{User: user, Session: sess}, nil
}

// Login authenticates an existing local user by username alone (see the
// security note above) and starts an authenticated session.
func (s *AuthService) Login(ctx context.Context, username string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		// Invalid username — same shape whether misspelled or never registered.
		return nil, err
	}

	sess, err := s.startSession(ctx, user.ID, session.StateAuthenticated)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Session: sess}, nil
}

// LoginExternal resolves a verified external identity to a user, creating
// one on first login.
//
// A first-time login provisions the user under the synthetic placeholder
// username and renders their avatar once; the returned session is in the
// pending state, so the only permitted operation is CompleteUsername.
// Subsequent logins find the existing row by identity hash — no duplicate
// user, no avatar re-render — and come back authenticated (or pending, if
// onboarding was abandoned half-way).
func (s *AuthService) LoginExternal(ctx context.Context, ident auth.ExternalIdentity) (*AuthResult, error) {
	user, err := s.users.GetByIdentityHash(ctx, ident.IdentityHash())
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("resolving external identity: %w", err)
		}

		user = &model.User{
			Username:     model.PlaceholderPrefix + ident.ProviderID,
			IdentityHash: ident.IdentityHash(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("provisioning external user: %w", err)
		}
		s.provisionAvatar(ctx, user, ident.DisplayNameHint())

		s.logger.Info("external user provisioned",
			slog.String("userID", user.ID),
			slog.String("provider", ident.Provider),
		)
	}

	state := session.StateAuthenticated
	if user.HasPlaceholderUsername() {
		state = session.StatePendingUsername
	}

	sess, err := s.startSession(ctx, user.ID, state)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Session: sess}, nil
}

// CompleteUsername finishes external onboarding: the placeholder username is
// replaced and the pending session becomes authenticated in place, under the
// same token the client already holds.
func (s *AuthService) CompleteUsername(ctx context.Context, sess *session.Session, newUsername string) (*model.User, error) {
	if !sess.Pending() {
		return nil, apperror.Unauthenticated("no registration to complete")
	}

	newUsername = strings.TrimSpace(newUsername)
	if err := validateUsername(newUsername); err != nil {
		return nil, err
	}

	if err := s.users.RenameFromPlaceholder(ctx, sess.UserID, newUsername); err != nil {
		return nil, fmt.Errorf("completing username: %w", err)
	}

	sess.State = session.StateAuthenticated
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("reloading user: %w", err)
	}

	s.logger.Info("onboarding completed",
		slog.String("userID", user.ID),
		slog.String("username", newUsername),
	)

	return user, nil
}

// Logout destroys the session server-side. The token is dead immediately,
// whatever state it was in.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// GetUserByID resolves a session's user id to the full record.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUserByUsername resolves a username, e.g. for the avatar route.
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// startSession mints a fresh opaque token and writes the session through the
// store before anyone can present it.
func (s *AuthService) startSession(ctx context.Context, userID string, state session.State) (*session.Session, error) {
	sess, err := session.New(userID, state)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

// provisionAvatar renders and stores the default avatar once per new
// identity. Failures are logged and swallowed: an account without an avatar
// image is degraded, not broken, and the avatar route can re-generate the
// image on the fly.
func (s *AuthService) provisionAvatar(ctx context.Context, user *model.User, seedName string) {
	if seedName == "" || s.avatars == nil {
		return
	}

	seed, _ := utf8.DecodeRuneInString(seedName)
	data, err := avatar.Generate(seed)
	if err != nil {
		s.logger.Error("avatar generation failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	ref, err := s.avatars.Save(user.ID, data)
	if err != nil {
		s.logger.Error("avatar save failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.users.SetAvatarRef(ctx, user.ID, ref); err != nil {
		s.logger.Error("avatar ref update failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	user.AvatarRef = ref
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.HasPrefix(username, model.PlaceholderPrefix) {
		// Reserved for synthetic onboarding names.
		return apperror.ValidationFailed("username",
			fmt.Sprintf("usernames may not start with %q", model.PlaceholderPrefix))
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
