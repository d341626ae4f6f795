package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/model"
)

// newTestDB opens an in-memory database with migrations applied. Each test
// gets a fresh, isolated store; Close is registered as cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		IdentityHash: "hash-" + username,
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

// createTestPost inserts a post authored by username.
func createTestPost(t *testing.T, db *DB, username, title string) *model.Post {
	t.Helper()
	post := &model.Post{
		Title:          title,
		Content:        "content of " + title,
		AuthorUsername: username,
		Category:       "General",
	}
	if err := db.Posts().Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post %q: %v", title, err)
	}
	return post
}

// insertPostAt writes a post row directly so tests can control the timestamp
// and like count, bypassing Create's time.Now.
func insertPostAt(t *testing.T, db *DB, id, title string, createdAt time.Time, likeCount int) {
	t.Helper()
	_, err := db.conn.Exec(
		`INSERT INTO posts (id, title, content, username, created_at, like_count, category)
		 VALUES (?, ?, ?, ?, ?, ?, 'General')`,
		id, title, "content", "author", createdAt, likeCount,
	)
	if err != nil {
		t.Fatalf("failed to insert post %q: %v", title, err)
	}
}
