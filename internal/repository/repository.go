// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements them; tests substitute
// in-memory mocks.
//
// Every invariant that spans a check and a write (unique username, unique
// like, like-count consistency) is enforced INSIDE a repository operation as
// a single conditional insert or transaction — never as a read in the caller
// followed by a write. Two concurrent requests may interleave anywhere
// between repository calls.
package repository

import (
	"context"

	"github.com/sakif/microblog/internal/model"
)

// FeedSort selects the ordering of the home feed.
type FeedSort int

const (
	SortNewest FeedSort = iota // created_at descending (default)
	SortOldest                 // created_at ascending
	SortMostLiked              // like_count descending, created_at descending on ties
)

// ParseFeedSort maps the sortMode query parameter to a FeedSort.
// Unrecognized or empty values fall back to newest-first.
func ParseFeedSort(mode string) FeedSort {
	switch mode {
	case "likes":
		return SortMostLiked
	case "old":
		return SortOldest
	default:
		return SortNewest
	}
}

// FeedOptions narrows the feed query. Zero value means "everything,
// newest first".
type FeedOptions struct {
	Sort     FeedSort
	Category string // filter to one category tag when non-empty
}

// UserRepository is the identity store.
type UserRepository interface {
	// Create inserts a new user. The username and identity-hash uniqueness
	// checks happen atomically with the insert; a clash returns
	// apperror.ErrConflict. ID and CreatedAt are filled in on success.
	Create(ctx context.Context, user *model.User) error

	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIdentityHash(ctx context.Context, hash string) (*model.User, error)

	// RenameFromPlaceholder replaces the synthetic onboarding username with a
	// human-chosen one. Returns apperror.ErrConflict if the new name is taken
	// by a different user, apperror.ErrNotFound if the id does not exist.
	RenameFromPlaceholder(ctx context.Context, id, newUsername string) error

	// SetAvatarRef records where the provisioned avatar image was persisted.
	SetAvatarRef(ctx context.Context, id, ref string) error
}

// PostRepository is the post store plus the like engine.
type PostRepository interface {
	// Create inserts a post with LikeCount 0. ID and CreatedAt are filled in.
	Create(ctx context.Context, post *model.Post) error

	GetByID(ctx context.Context, id string) (*model.Post, error)

	// DeleteForAuthor deletes the post only if (id, author) match. A wrong
	// owner and a missing id both return apperror.ErrNotFound — callers
	// cannot probe for the existence of other users' posts. Like rows for
	// the post are removed in the same transaction.
	DeleteForAuthor(ctx context.Context, id, authorUsername string) error

	// ListFeed returns posts joined with the author's avatar reference,
	// ordered per opts. An empty store yields an empty slice, not an error.
	ListFeed(ctx context.Context, opts FeedOptions) ([]model.PostView, error)

	// ListByAuthor returns the author's posts, newest first.
	ListByAuthor(ctx context.Context, username string) ([]model.Post, error)

	// Like records that username liked the post and returns the new like
	// count. The duplicate check, the like insert, and the counter increment
	// are one transaction: concurrent likes can never double-increment.
	// Returns apperror.ErrAlreadyLiked on a repeat, apperror.ErrNotFound if
	// the post does not exist.
	Like(ctx context.Context, username, postID string) (int, error)
}
