package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundUnwrapsToSentinel(t *testing.T) {
	err := NotFound("post", "abc123")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("errors.Is(err, ErrNotFound) = false, want true")
	}
	if err.Error() == "" {
		t.Error("expected a non-empty message")
	}
}

func TestUsernameTaken(t *testing.T) {
	err := UsernameTaken("alice")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("errors.Is(err, ErrConflict) = false, want true")
	}
	if err.Field != "username" {
		t.Errorf("Field = %q, want %q", err.Field, "username")
	}
}

func TestAlreadyLikedIsNotConflict(t *testing.T) {
	// The like policy depends on telling duplicate likes apart from
	// username conflicts, so the sentinels must not alias.
	err := AlreadyLiked("bob", "p1")
	if !errors.Is(err, ErrAlreadyLiked) {
		t.Errorf("errors.Is(err, ErrAlreadyLiked) = false, want true")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("AlreadyLiked should not match ErrConflict")
	}
}

func TestWrappedErrorSurvivesChain(t *testing.T) {
	inner := ValidationFailed("title", "title is required")
	outer := fmt.Errorf("creating post: %w", inner)

	if !errors.Is(outer, ErrValidation) {
		t.Error("wrapped error lost ErrValidation sentinel")
	}

	var appErr *AppError
	if !errors.As(outer, &appErr) {
		t.Fatal("errors.As failed to extract *AppError")
	}
	if appErr.Field != "title" {
		t.Errorf("Field = %q, want %q", appErr.Field, "title")
	}
}
