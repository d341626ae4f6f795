package handler

import (
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/avatar"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/service"
)

// stateCookie carries the OAuth CSRF state between the redirect to Google and
// the callback. Short-lived and HttpOnly.
const stateCookie = "oauth_state"

const stateTTL = 10 * time.Minute

// AvatarReader reads a stored avatar image back by its reference.
// *avatar.DirStore implements it.
type AvatarReader interface {
	Read(ref string) ([]byte, error)
}

// AuthHandler serves the account routes: register, login (local and Google),
// logout, onboarding completion, profile, and avatar images.
type AuthHandler struct {
	auth       *service.AuthService
	posts      *service.PostService
	google     *auth.GoogleProvider // nil when Google login is not configured
	avatars    AvatarReader
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(
	authSvc *service.AuthService,
	posts *service.PostService,
	google *auth.GoogleProvider,
	avatars AvatarReader,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:       authSvc,
		posts:      posts,
		google:     google,
		avatars:    avatars,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// HandleLoginPage is the anonymous landing spot; protected routes redirect
// here. It echoes back any failure message from a previous form submission.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"message": "log in with POST /login, register with POST /register, or start Google login at GET /auth/google",
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		resp["error"] = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRegister creates a local account and logs it in.
//
// HTTP: POST /register  (form field: username)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Register(r.Context(), r.FormValue("username"))
	if err != nil {
		redirectWithError(w, r, "/login", err)
		return
	}

	auth.SetSessionCookie(w, result.Session.Token, h.sessionTTL)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogin starts a session for an existing local account.
//
// HTTP: POST /login  (form field: username)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.Login(r.Context(), r.FormValue("username"))
	if err != nil {
		redirectWithError(w, r, "/login", err)
		return
	}

	auth.SetSessionCookie(w, result.Session.Token, h.sessionTTL)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout destroys the session server-side and clears the cookie.
// Safe to hit without a session.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleGoogleLogin kicks off the OAuth flow: mint a CSRF state, remember it
// in a cookie, send the browser to Google's consent page.
//
// HTTP: GET /auth/google
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		redirectWithError(w, r, "/login", apperror.ValidationFailed("provider", "Google login is not configured"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// HandleGoogleCallback finishes the OAuth flow. The state from the query must
// match the cookie set at the start; a mismatch means the callback did not
// originate from our redirect.
//
// A first-time identity lands in the pending state and goes to username
// selection; a returning one goes straight to the feed.
//
// HTTP: GET /auth/google/callback?state=...&code=...
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.logger.Warn("OAuth state mismatch")
		redirectWithError(w, r, "/login", apperror.Unauthenticated("login attempt could not be verified"))
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	ident, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("OAuth exchange failed", slog.String("error", err.Error()))
		redirectWithError(w, r, "/login", apperror.Unauthenticated("Google login failed"))
		return
	}

	result, err := h.auth.LoginExternal(r.Context(), *ident)
	if err != nil {
		h.logger.Error("external login failed", slog.String("error", err.Error()))
		redirectWithError(w, r, "/login", apperror.Unauthenticated("Google login failed"))
		return
	}

	auth.SetSessionCookie(w, result.Session.Token, h.sessionTTL)
	if result.Session.Pending() {
		http.Redirect(w, r, "/registerUsername", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleUsernamePage prompts a pending session for its username. Sits behind
// RequirePending.
//
// HTTP: GET /registerUsername
func (h *AuthHandler) HandleUsernamePage(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"message": "pick a username with POST /registerUsername",
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		resp["error"] = msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRegisterUsername completes external onboarding: the placeholder
// username becomes a real one and the session is promoted in place.
//
// HTTP: POST /registerUsername  (form field: username)
func (h *AuthHandler) HandleRegisterUsername(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if _, err := h.auth.CompleteUsername(r.Context(), sess, r.FormValue("username")); err != nil {
		redirectWithError(w, r, "/registerUsername", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ProfileResponse is the JSON shape of the profile route: the account plus
// its posts, newest first.
type ProfileResponse struct {
	User  *model.User  `json:"user"`
	Posts []model.Post `json:"posts"`
}

// HandleProfile shows the logged-in user's account and posts.
//
// HTTP: GET /profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.ListByAuthor(r.Context(), user.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user, Posts: posts})
}

// HandleAvatar serves a user's avatar image. The stored file is preferred;
// if it is missing (storage wiped, provisioning failed) the image is
// re-rendered from the username on the fly, so the route never 404s for an
// existing user.
//
// HTTP: GET /avatar/{username}
func (h *AuthHandler) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := h.auth.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	var data []byte
	if user.AvatarRef != "" && h.avatars != nil {
		if stored, readErr := h.avatars.Read(user.AvatarRef); readErr == nil {
			data = stored
		}
	}
	if data == nil {
		seed, _ := utf8.DecodeRuneInString(user.Username)
		data, err = avatar.Generate(seed)
		if err != nil {
			h.logger.Error("avatar fallback render failed",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write avatar", slog.String("error", err.Error()))
	}
}
