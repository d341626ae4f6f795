package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// Create inserts a new user. Uniqueness of username and identity_hash is
// enforced by the table constraints, so the check and the insert are a single
// atomic step — two concurrent registrations of the same name cannot both
// succeed.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, identity_hash, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.IdentityHash,
		user.AvatarRef,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UsernameTaken(user.Username)
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	return nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `username = ?`, username)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *UserStore) GetByIdentityHash(ctx context.Context, hash string) (*model.User, error) {
	return s.getUser(ctx, `identity_hash = ?`, hash)
}

// getUser runs the shared single-row lookup. Matching is exact and
// case-sensitive (SQLite TEXT comparison with the default BINARY collation).
func (s *UserStore) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	var u model.User

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, username, identity_hash, avatar_url, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(
		&u.ID,
		&u.Username,
		&u.IdentityHash,
		&u.AvatarRef,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}

	return &u, nil
}

// RenameFromPlaceholder swaps the synthetic onboarding username for a chosen
// one. The UNIQUE constraint makes the taken-check atomic with the update.
// A pending user has no posts yet (the session manager blocks posting until
// onboarding completes), so no denormalized author column needs rewriting.
func (s *UserStore) RenameFromPlaceholder(ctx context.Context, id, newUsername string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET username = ? WHERE id = ?`,
		newUsername, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UsernameTaken(newUsername)
		}
		return fmt.Errorf("sqlite: renaming user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// SetAvatarRef records the persisted avatar location for the user.
func (s *UserStore) SetAvatarRef(ctx context.Context, id, ref string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET avatar_url = ? WHERE id = ?`,
		ref, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting avatar for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
