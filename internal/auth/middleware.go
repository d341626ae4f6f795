package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/microblog/internal/session"
)

// SessionCookie is the name of the HttpOnly cookie carrying the opaque
// session token.
const SessionCookie = "session"

// contextKey is unexported so only this package can place or read session
// values in a request context.
type contextKey string

const sessionKey contextKey = "session"

// SetSessionCookie writes the session token cookie. HttpOnly keeps it away
// from page scripts; SameSite=Lax stops cross-site POSTs from riding it.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the cookie immediately.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireUser gates routes that need a fully authenticated session.
//
// Anonymous requests are not errors — they redirect to the login entry
// point. A pending-username session may do nothing except complete
// registration, so it redirects to the username-selection route instead.
func RequireUser(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := resolve(r, store)
			if sess == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if sess.Pending() {
				http.Redirect(w, r, "/registerUsername", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePending gates the username-completion route: only a session in the
// pending state may reach it.
func RequirePending(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := resolve(r, store)
			if sess == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !sess.Pending() {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser attaches the session when one is present but never blocks.
// Public routes use it so the feed can still show who is logged in.
func OptionalUser(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess := resolve(r, store); sess != nil {
				r = r.WithContext(context.WithValue(r.Context(), sessionKey, sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext retrieves the resolved session, or nil for anonymous requests.
func FromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// resolve looks up the cookie token in the store. Any failure — no cookie,
// unknown token, expired session — yields nil: the request is anonymous.
func resolve(r *http.Request, store session.Store) *session.Session {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := store.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}
