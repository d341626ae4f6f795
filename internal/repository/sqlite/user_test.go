package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "alice",
		IdentityHash: "local-hash-alice",
		AvatarRef:    "/avatar/alice",
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Create fills ID and CreatedAt in place (pointer receiver).
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	duplicate := &model.User{Username: "alice", IdentityHash: "other-hash"}
	err := db.Users().Create(context.Background(), duplicate)
	if err == nil {
		t.Fatal("Create() should fail on duplicate username")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateIdentityHash(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	duplicate := &model.User{Username: "bob", IdentityHash: "hash-alice"}
	err := db.Users().Create(context.Background(), duplicate)
	if err == nil {
		t.Fatal("Create() should fail on duplicate identity hash")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUserLookups(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice")

	byName, err := db.Users().GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername().ID = %q, want %q", byName.ID, created.ID)
	}

	byID, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("GetByID().Username = %q, want %q", byID.Username, "alice")
	}

	byHash, err := db.Users().GetByIdentityHash(context.Background(), "hash-alice")
	if err != nil {
		t.Fatalf("GetByIdentityHash() error = %v", err)
	}
	if byHash.ID != created.ID {
		t.Errorf("GetByIdentityHash().ID = %q, want %q", byHash.ID, created.ID)
	}
}

func TestUserLookup_CaseSensitive(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	_, err := db.Users().GetByUsername(context.Background(), "Alice")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername(Alice) error = %v, want ErrNotFound", err)
	}
}

func TestRenameFromPlaceholder(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, model.PlaceholderPrefix+"42")

	if err := db.Users().RenameFromPlaceholder(context.Background(), user.ID, "gamerDude"); err != nil {
		t.Fatalf("RenameFromPlaceholder() error = %v", err)
	}

	renamed, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() after rename error = %v", err)
	}
	if renamed.Username != "gamerDude" {
		t.Errorf("Username = %q, want %q", renamed.Username, "gamerDude")
	}
	if renamed.HasPlaceholderUsername() {
		t.Error("user should no longer carry a placeholder username")
	}
}

func TestRenameFromPlaceholder_Taken(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")
	pending := createTestUser(t, db, model.PlaceholderPrefix+"42")

	err := db.Users().RenameFromPlaceholder(context.Background(), pending.ID, "alice")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	// The placeholder row must be unchanged.
	unchanged, _ := db.Users().GetByID(context.Background(), pending.ID)
	if unchanged.Username != model.PlaceholderPrefix+"42" {
		t.Errorf("Username = %q, want placeholder preserved", unchanged.Username)
	}
}

func TestRenameFromPlaceholder_MissingUser(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().RenameFromPlaceholder(context.Background(), "no-such-id", "name")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSetAvatarRef(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	if err := db.Users().SetAvatarRef(context.Background(), user.ID, "data/avatars/abc.png"); err != nil {
		t.Fatalf("SetAvatarRef() error = %v", err)
	}

	got, _ := db.Users().GetByID(context.Background(), user.ID)
	if got.AvatarRef != "data/avatars/abc.png" {
		t.Errorf("AvatarRef = %q, want %q", got.AvatarRef, "data/avatars/abc.png")
	}
}
