package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
	DefaultCategory  = "General"
)

// PostService handles post creation, deletion, and likes. It needs the user
// repository as well: a like is only valid from a user that exists.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// Create validates and saves a new post for the author. Title and content
// must be non-empty after trimming; the category tag defaults to "General".
func (s *PostService) Create(ctx context.Context, title, content, category, authorUsername string) (*model.Post, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	category = strings.TrimSpace(category)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	if category == "" {
		category = DefaultCategory
	}

	post := &model.Post{
		Title:          title,
		Content:        content,
		AuthorUsername: authorUsername,
		Category:       category,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author", authorUsername),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", authorUsername),
	)

	return post, nil
}

// GetByID returns a single post. ErrNotFound propagates untouched.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.posts.GetByID(ctx, id)
}

// Delete removes the caller's own post. A wrong owner gets the same
// ErrNotFound a missing id would — nothing about foreign posts leaks.
func (s *PostService) Delete(ctx context.Context, id, authorUsername string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "post ID is required")
	}

	if err := s.posts.DeleteForAuthor(ctx, id, authorUsername); err != nil {
		return err
	}

	s.logger.Info("post deleted",
		slog.String("id", id),
		slog.String("author", authorUsername),
	)
	return nil
}

// Like records a like and returns the new count.
//
// Policy (fixed, tested): a repeat like by the same user is REJECTED with
// ErrAlreadyLiked and leaves the count unchanged — not treated as an
// idempotent success. The existence check, insert, and increment are a
// single repository transaction.
func (s *PostService) Like(ctx context.Context, username, postID string) (int, error) {
	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		return 0, fmt.Errorf("resolving liker %q: %w", username, err)
	}

	count, err := s.posts.Like(ctx, username, postID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("post liked",
		slog.String("postID", postID),
		slog.String("username", username),
		slog.Int("likes", count),
	)

	return count, nil
}

// ListByAuthor returns the user's own posts, newest first, for the profile view.
func (s *PostService) ListByAuthor(ctx context.Context, username string) ([]model.Post, error) {
	posts, err := s.posts.ListByAuthor(ctx, username)
	if err != nil {
		s.logger.Error("failed to list posts",
			slog.String("author", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing posts by %s: %w", username, err)
	}
	return posts, nil
}
