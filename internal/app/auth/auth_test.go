package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	usercontext "github.com/serg2014/go-payouts-dashboard/internal/app/context"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/app/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	a := New("secret", storage.NewMemory(), time.Hour)
	id := uuid.New()
	cookie := a.CreateSessionCookie(id)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(cookie)
	got, err := a.GetSessionIDFromCookie(r)
	require.NoError(t, err)
	assert.Equal(t, id, *got)
}

func TestCookieRejected(t *testing.T) {
	a := New("secret", storage.NewMemory(), time.Hour)
	other := New("other", storage.NewMemory(), time.Hour)
	id := uuid.New()

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: &http.Cookie{Name: CookieAuthName, Value: "garbage"}},
		{name: "bad uuid", cookie: &http.Cookie{Name: CookieAuthName, Value: "nope.abcd"}},
		{name: "foreign signature", cookie: other.CreateSessionCookie(id)},
		{name: "tampered id", cookie: &http.Cookie{
			Name:  CookieAuthName,
			Value: uuid.NewString() + CookieAuthSep + sign(id[:], []byte("secret")),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			_, err := a.GetSessionIDFromCookie(r)
			assert.ErrorIs(t, err, ErrCookieSession)
		})
	}
}

func TestGuard(t *testing.T) {
	store := storage.NewMemory()
	a := New("secret", store, time.Hour)
	session, err := a.Login(context.Background(), "tok", models.UserProfile{FullName: "Jane"})
	require.NoError(t, err)

	var seen *models.Session
	h := a.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, err = usercontext.GetSession(r.Context())
		require.NoError(t, err)
	}))

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(a.CreateSessionCookie(session.ID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "tok", seen.AccessToken)
	assert.Equal(t, "Jane", seen.Profile.FullName)

	// без сессии сразу на вход, без задержки
	seen = nil
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
	assert.Nil(t, seen)

	// после выхода cookie больше не работает
	require.NoError(t, a.Logout(context.Background(), session.ID))
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(a.CreateSessionCookie(session.ID))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Nil(t, seen)
}

func TestGuardExpiredSession(t *testing.T) {
	store := storage.NewMemory()
	a := New("secret", store, time.Hour)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	session, err := a.Login(context.Background(), "tok", models.UserProfile{})
	require.NoError(t, err)
	a.now = time.Now

	h := a.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(a.CreateSessionCookie(session.ID))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	_, err = store.GetSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}
