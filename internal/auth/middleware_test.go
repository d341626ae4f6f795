package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/microblog/internal/session"
)

func newStoreWithSession(t *testing.T, state session.State) (session.Store, *session.Session) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	sess, err := session.New("user-1", state)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), sess))
	return store, sess
}

// okHandler records whether the chain reached it and what session it saw.
func okHandler(reached *bool, seen **session.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		*seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireUser_AnonymousRedirectsToLogin(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	var reached bool
	var seen *session.Session

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	RequireUser(store)(okHandler(&reached, &seen)).ServeHTTP(rr, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRequireUser_AuthenticatedPassesThrough(t *testing.T) {
	store, sess := newStoreWithSession(t, session.StateAuthenticated)
	var reached bool
	var seen *session.Session

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.Token})
	RequireUser(store)(okHandler(&reached, &seen)).ServeHTTP(rr, req)

	require.True(t, reached)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)
}

func TestRequireUser_PendingRedirectsToCompleteRegistration(t *testing.T) {
	store, sess := newStoreWithSession(t, session.StatePendingUsername)
	var reached bool
	var seen *session.Session

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.Token})
	RequireUser(store)(okHandler(&reached, &seen)).ServeHTTP(rr, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/registerUsername", rr.Header().Get("Location"))
}

func TestRequirePending_OnlyAdmitsPendingSessions(t *testing.T) {
	store, sess := newStoreWithSession(t, session.StateAuthenticated)
	var reached bool
	var seen *session.Session

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/registerUsername", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.Token})
	RequirePending(store)(okHandler(&reached, &seen)).ServeHTTP(rr, req)

	assert.False(t, reached)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestOptionalUser_NeverBlocks(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	var reached bool
	var seen *session.Session

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale-token"})
	OptionalUser(store)(okHandler(&reached, &seen)).ServeHTTP(rr, req)

	assert.True(t, reached)
	assert.Nil(t, seen, "stale token should resolve to anonymous")
	assert.Equal(t, http.StatusOK, rr.Code)
}
