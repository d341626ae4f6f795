// Package handler contains the HTTP layer: parse the request, call a
// service, write the response. No business rules live here.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/service"
)

// FeedHandler serves the public read side: the home feed and single posts.
type FeedHandler struct {
	feed   *service.FeedService
	posts  *service.PostService
	logger *slog.Logger
}

func NewFeedHandler(feed *service.FeedService, posts *service.PostService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, posts: posts, logger: logger}
}

// HandleHome returns the global feed.
//
// HTTP: GET /?sortMode=likes|new|old&category=Tech
//
// An unknown sortMode silently falls back to newest-first; the feed is never
// an error page. An empty store yields an empty JSON array.
func (h *FeedHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	sortMode := r.URL.Query().Get("sortMode")
	category := r.URL.Query().Get("category")

	feed, err := h.feed.GetFeed(r.Context(), sortMode, category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}

// HandlePost returns a single post by ID.
//
// HTTP: GET /post/{id}
//
// A missing post sends the browser to the error page rather than a bare 404,
// matching the form-driven navigation of the rest of the app.
func (h *FeedHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Redirect(w, r, "/error", http.StatusSeeOther)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleErrorPage is the landing spot for broken navigation, e.g. a link to a
// deleted post.
//
// HTTP: GET /error
func (h *FeedHandler) HandleErrorPage(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("error")
	if msg == "" {
		msg = "the page you were looking for does not exist"
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: msg,
	})
}
