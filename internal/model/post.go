package model

import "time"

// Post is a short message on the feed, tagged with a free-form category
// (the game it is about, historically).
//
// LikeCount is derived from the likes table but maintained by atomic
// increment in the same transaction that inserts the Like row, so the two
// never drift. AuthorUsername references User.Username; posts are owned
// exclusively by their author for deletion purposes.
type Post struct {
	ID             string    `json:"id"        db:"id"`
	Title          string    `json:"title"     db:"title"`
	Content        string    `json:"content"   db:"content"`
	AuthorUsername string    `json:"username"  db:"username"`
	CreatedAt      time.Time `json:"timestamp" db:"created_at"`
	LikeCount      int       `json:"likes"     db:"like_count"`
	Category       string    `json:"category"  db:"category"`
}

// Like records that a user has liked a post exactly once.
// (Username, PostID) is the composite primary key — a second insert for the
// same pair violates the constraint, which is how duplicate likes are
// rejected without a read-then-write race.
type Like struct {
	Username string `json:"username" db:"username"`
	PostID   string `json:"postId"   db:"post_id"`
}

// PostView is a Post joined with its author's avatar reference, as shown on
// the home feed and post detail views.
type PostView struct {
	Post
	AuthorAvatarRef string `json:"avatarRef" db:"avatar_url"`
}
