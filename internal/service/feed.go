package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// FeedService composes the home feed: posts joined with author avatar
// references, ordered by the requested sort mode. Pure reads, no mutation.
type FeedService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewFeedService(posts repository.PostRepository, logger *slog.Logger) *FeedService {
	return &FeedService{posts: posts, logger: logger}
}

// GetFeed returns the global feed. sortMode is the raw query value
// ("likes", "new", "old"); anything else falls back to newest-first.
// category, when non-empty, filters to one tag. An empty store produces an
// empty slice, never an error.
func (s *FeedService) GetFeed(ctx context.Context, sortMode, category string) ([]model.PostView, error) {
	opts := repository.FeedOptions{
		Sort:     repository.ParseFeedSort(sortMode),
		Category: category,
	}

	feed, err := s.posts.ListFeed(ctx, opts)
	if err != nil {
		s.logger.Error("failed to load feed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("loading feed: %w", err)
	}

	return feed, nil
}
