package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/service"
)

// PostHandler owns the authenticated write side: create, delete, like.
// Every route it serves sits behind RequireUser, so the session in the
// request context is always present and authenticated.
type PostHandler struct {
	posts  *service.PostService
	auth   *service.AuthService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, authSvc *service.AuthService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, auth: authSvc, logger: logger}
}

// LikeResponse is the JSON shape of the like endpoint, consumed by the
// feed's like buttons.
type LikeResponse struct {
	Success bool `json:"success"`
	Likes   int  `json:"likes"`
}

// HandleCreate publishes a new post for the logged-in user.
//
// HTTP: POST /posts  (form fields: title, content, category)
//
// Success redirects to the new post; a validation failure bounces back to the
// feed with the message in the query string.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Create(r.Context(),
		r.FormValue("title"),
		r.FormValue("content"),
		r.FormValue("category"),
		user.Username,
	)
	if err != nil {
		redirectWithError(w, r, "/", err)
		return
	}

	http.Redirect(w, r, "/post/"+post.ID, http.StatusSeeOther)
}

// HandleDelete removes one of the user's own posts.
//
// HTTP: POST /delete/{id}
//
// Deleting a post that is missing, or that belongs to someone else, produces
// the same redirect: the two cases are deliberately indistinguishable.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.posts.Delete(r.Context(), r.PathValue("id"), user.Username); err != nil {
		redirectWithError(w, r, "/", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLike records a like and returns the fresh count.
//
// HTTP: POST /like/{id}
//
// A repeat like from the same user is rejected with 409 and success=false;
// the likes field still carries the current count so the button can stay
// accurate.
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	postID := r.PathValue("id")

	count, err := h.posts.Like(r.Context(), user.Username, postID)
	if err != nil {
		if errors.Is(err, apperror.ErrAlreadyLiked) {
			likes := 0
			if post, getErr := h.posts.GetByID(r.Context(), postID); getErr == nil {
				likes = post.LikeCount
			}
			writeJSON(w, http.StatusConflict, LikeResponse{Success: false, Likes: likes})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LikeResponse{Success: true, Likes: count})
}

// currentUser resolves the session in the context to a full user record.
// The false return means the response has already been written.
func (h *PostHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	sess := auth.FromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}

	user, err := h.auth.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("session user lookup failed",
			slog.String("userID", sess.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return nil, false
	}
	return user, true
}
