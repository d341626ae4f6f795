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

// compile-time check that *PostStore implements repository.PostRepository
var _ repository.PostRepository = (*PostStore)(nil)

// Create inserts a post. xid IDs sort by creation time, which keeps the
// newest-first tie-break deterministic even for posts created in the same
// clock tick.
func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()
	post.LikeCount = 0

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, username, created_at, like_count, category)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		post.ID,
		post.Title,
		post.Content,
		post.AuthorUsername,
		post.CreatedAt,
		post.Category,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, title, content, username, created_at, like_count, category
		 FROM posts WHERE id = ?`,
		id,
	).Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.AuthorUsername,
		&p.CreatedAt,
		&p.LikeCount,
		&p.Category,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return &p, nil
}

// DeleteForAuthor deletes the post only when the caller owns it. The WHERE
// clause carries both id and author, so a non-owner request affects zero rows
// and reports plain NotFound — existence of other users' posts never leaks.
// Like rows go in the same transaction to keep the likes table consistent.
func (s *PostStore) DeleteForAuthor(ctx context.Context, id, authorUsername string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ? AND username = ?`,
		id, authorUsername,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting likes for post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}

	return nil
}

// feedOrder maps a FeedSort to its ORDER BY clause. mostLiked breaks ties by
// created_at descending so the ordering is deterministic.
func feedOrder(sort repository.FeedSort) string {
	switch sort {
	case repository.SortOldest:
		return "p.created_at ASC, p.id ASC"
	case repository.SortMostLiked:
		return "p.like_count DESC, p.created_at DESC, p.id DESC"
	default:
		return "p.created_at DESC, p.id DESC"
	}
}

// ListFeed returns posts joined with the author's avatar reference. The LEFT
// JOIN tolerates a missing author row rather than dropping the post.
func (s *PostStore) ListFeed(ctx context.Context, opts repository.FeedOptions) ([]model.PostView, error) {
	query := `SELECT p.id, p.title, p.content, p.username, p.created_at,
	                 p.like_count, p.category, COALESCE(u.avatar_url, '')
	          FROM posts p
	          LEFT JOIN users u ON u.username = p.username`

	var args []any
	if opts.Category != "" {
		query += ` WHERE p.category = ?`
		args = append(args, opts.Category)
	}
	query += ` ORDER BY ` + feedOrder(opts.Sort)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing feed: %w", err)
	}
	defer rows.Close()

	views := make([]model.PostView, 0, 16)
	for rows.Next() {
		var v model.PostView
		if err := rows.Scan(
			&v.ID, &v.Title, &v.Content, &v.AuthorUsername,
			&v.CreatedAt, &v.LikeCount, &v.Category, &v.AuthorAvatarRef,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed: %w", err)
	}

	return views, nil
}

// ListByAuthor returns the author's posts, newest first.
func (s *PostStore) ListByAuthor(ctx context.Context, username string) ([]model.Post, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, title, content, username, created_at, like_count, category
		 FROM posts
		 WHERE username = ?
		 ORDER BY created_at DESC, id DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts by %s: %w", username, err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, 8)
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.AuthorUsername,
			&p.CreatedAt, &p.LikeCount, &p.Category,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// Like records the like and bumps the counter in one transaction.
//
// Order of operations inside the tx:
//  1. UPDATE posts SET like_count = like_count + 1 — zero rows affected
//     means the post does not exist, roll back with NotFound.
//  2. INSERT INTO likes — the composite primary key rejects a duplicate,
//     roll back with AlreadyLiked, leaving the counter untouched.
//  3. Read back the new count and commit.
//
// Because both writes commit or neither does, two concurrent first likes for
// the same (user, post) serialize at the constraint: exactly one increments.
func (s *PostStore) Like(ctx context.Context, username, postID string) (int, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning like tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`,
		postID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: incrementing like count for post %s: %w", postID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, apperror.NotFound("post", postID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO likes (username, post_id) VALUES (?, ?)`,
		username, postID,
	); err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.AlreadyLiked(username, postID)
		}
		return 0, fmt.Errorf("sqlite: inserting like: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT like_count FROM posts WHERE id = ?`, postID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: reading like count for post %s: %w", postID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing like: %w", err)
	}

	return count, nil
}

// CountLikes returns the number of like rows for a post. Used by tests to
// verify the counter never drifts from the table.
func (s *PostStore) CountLikes(ctx context.Context, postID string) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting likes for post %s: %w", postID, err)
	}
	return n, nil
}
