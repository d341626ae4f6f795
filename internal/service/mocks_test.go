package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
	"github.com/sakif/microblog/internal/session"
)

// Hand-written in-memory mocks implementing the same interfaces the
// sqlite package does.

type mockUserRepo struct {
	users  map[string]*model.User // keyed by ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.UsernameTaken(user.Username)
		}
		if u.IdentityHash == user.IdentityHash {
			return apperror.UsernameTaken(user.Username)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByIdentityHash(_ context.Context, hash string) (*model.User, error) {
	for _, u := range m.users {
		if u.IdentityHash == hash {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", hash)
}

func (m *mockUserRepo) RenameFromPlaceholder(_ context.Context, id, newUsername string) error {
	target, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	for otherID, u := range m.users {
		if otherID != id && u.Username == newUsername {
			return apperror.UsernameTaken(newUsername)
		}
	}
	target.Username = newUsername
	return nil
}

func (m *mockUserRepo) SetAvatarRef(_ context.Context, id, ref string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.AvatarRef = ref
	return nil
}

type mockPostRepo struct {
	posts  []*model.Post
	likes  map[string]map[string]bool // postID → username → liked
	nextID int
	clock  time.Time
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{
		likes: make(map[string]map[string]bool),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func (m *mockPostRepo) Create(_ context.Context, post *model.Post) error {
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	post.ID = fmt.Sprintf("post-%d", m.nextID)
	post.CreatedAt = m.clock
	post.LikeCount = 0
	stored := *post
	m.posts = append(m.posts, &stored)
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	for _, p := range m.posts {
		if p.ID == id {
			result := *p
			return &result, nil
		}
	}
	return nil, apperror.NotFound("post", id)
}

func (m *mockPostRepo) DeleteForAuthor(_ context.Context, id, authorUsername string) error {
	for i, p := range m.posts {
		if p.ID == id && p.AuthorUsername == authorUsername {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			delete(m.likes, id)
			return nil
		}
	}
	return apperror.NotFound("post", id)
}

func (m *mockPostRepo) ListFeed(_ context.Context, opts repository.FeedOptions) ([]model.PostView, error) {
	views := make([]model.PostView, 0, len(m.posts))
	for _, p := range m.posts {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		views = append(views, model.PostView{Post: *p})
	}

	sort.SliceStable(views, func(i, j int) bool {
		switch opts.Sort {
		case repository.SortOldest:
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		case repository.SortMostLiked:
			if views[i].LikeCount != views[j].LikeCount {
				return views[i].LikeCount > views[j].LikeCount
			}
			return views[i].CreatedAt.After(views[j].CreatedAt)
		default:
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
	})

	return views, nil
}

func (m *mockPostRepo) ListByAuthor(_ context.Context, username string) ([]model.Post, error) {
	var posts []model.Post
	for _, p := range m.posts {
		if p.AuthorUsername == username {
			posts = append(posts, *p)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (m *mockPostRepo) Like(_ context.Context, username, postID string) (int, error) {
	var target *model.Post
	for _, p := range m.posts {
		if p.ID == postID {
			target = p
			break
		}
	}
	if target == nil {
		return 0, apperror.NotFound("post", postID)
	}

	if m.likes[postID] == nil {
		m.likes[postID] = make(map[string]bool)
	}
	if m.likes[postID][username] {
		return 0, apperror.AlreadyLiked(username, postID)
	}
	m.likes[postID][username] = true
	target.LikeCount++
	return target.LikeCount, nil
}

// mockAvatarStorage records saves so tests can count provisioning.
type mockAvatarStorage struct {
	saves map[string][]byte
}

func newMockAvatarStorage() *mockAvatarStorage {
	return &mockAvatarStorage{saves: make(map[string][]byte)}
}

func (m *mockAvatarStorage) Save(userID string, data []byte) (string, error) {
	m.saves[userID] = data
	return "avatars/" + userID + ".png", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	users    *mockUserRepo
	posts    *mockPostRepo
	avatars  *mockAvatarStorage
	sessions *session.MemoryStore
	auth     *AuthService
	post     *PostService
	feed     *FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	env := &testEnv{
		users:    newMockUserRepo(),
		posts:    newMockPostRepo(),
		avatars:  newMockAvatarStorage(),
		sessions: session.NewMemoryStore(time.Hour),
	}
	env.auth = NewAuthService(env.users, env.sessions, env.avatars, logger)
	env.post = NewPostService(env.posts, env.users, logger)
	env.feed = NewFeedService(env.posts, logger)
	return env
}
