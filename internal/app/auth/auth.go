package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	usercontext "github.com/serg2014/go-payouts-dashboard/internal/app/context"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/app/storage"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
	"go.uber.org/zap"
)

const LoginPath = "/login"

var CookieAuthSep = "."
var CookieAuthName = "session_id"
var ErrCookieSession = fmt.Errorf("no valid cookie %s", CookieAuthName)
var ErrSessionExpired = errors.New("session expired")

// Auth управляет жизненным циклом сессии: вход, загрузка, выход
type Auth struct {
	secret []byte
	store  storage.Storager
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, store storage.Storager, ttl time.Duration) *Auth {
	return &Auth{
		secret: []byte(secret),
		store:  store,
		ttl:    ttl,
		now:    time.Now,
	}
}

func sign(value, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(value)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *Auth) CreateSessionCookie(sessionID models.SessionID) *http.Cookie {
	signature := sign(sessionID[:], a.secret)
	cookieVal := fmt.Sprintf("%s%s%s", sessionID.String(), CookieAuthSep, signature)

	return &http.Cookie{
		Name:     CookieAuthName,
		Value:    cookieVal,
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true, // Доступ только через HTTP, защита от XSS
		// Strict не подходит: вход приходит редиректом с чужого сайта
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Auth) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieAuthName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Auth) checkToken(token string) (*models.SessionID, error) {
	items := strings.Split(token, CookieAuthSep)
	if len(items) != 2 {
		return nil, errors.New("bad token")
	}
	sessionID, err := uuid.Parse(items[0])
	if err != nil {
		return nil, fmt.Errorf("bad session id from cookie: %w", err)
	}
	if !hmac.Equal([]byte(sign(sessionID[:], a.secret)), []byte(items[1])) {
		return nil, errors.New("bad signature")
	}
	return &sessionID, nil
}

func (a *Auth) GetSessionIDFromCookie(r *http.Request) (*models.SessionID, error) {
	cookie, err := r.Cookie(CookieAuthName)
	if err != nil {
		return nil, ErrCookieSession
	}
	sessionID, err := a.checkToken(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCookieSession, err)
	}
	return sessionID, nil
}

// Login создает сессию для токена внешнего провайдера
func (a *Auth) Login(ctx context.Context, accessToken string, profile models.UserProfile) (*models.Session, error) {
	session := &models.Session{
		ID:          uuid.New(),
		AccessToken: accessToken,
		Profile:     profile,
		CreateTime:  a.now(),
	}
	if err := a.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed save session: %w", err)
	}
	return session, nil
}

func (a *Auth) Logout(ctx context.Context, sessionID models.SessionID) error {
	return a.store.DeleteSession(ctx, sessionID)
}

func (a *Auth) LoadSession(r *http.Request) (*models.Session, error) {
	sessionID, err := a.GetSessionIDFromCookie(r)
	if err != nil {
		return nil, err
	}
	session, err := a.store.GetSession(r.Context(), *sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(a.now(), a.ttl) {
		if err := a.store.DeleteSession(r.Context(), session.ID); err != nil {
			logger.Log.Error("failed delete expired session", zap.Error(err))
		}
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Guard пускает дальше только с действующей сессией, иначе сразу отправляет на вход
func (a *Auth) Guard(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.LoadSession(r)
		if err != nil {
			if errors.Is(err, ErrCookieSession) ||
				errors.Is(err, ErrSessionExpired) ||
				errors.Is(err, storage.ErrSessionNotFound) {
				logger.Log.Debug("no session", zap.Error(err))
				http.SetCookie(w, a.ClearSessionCookie())
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			logger.Log.Error("failed load session", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		// сохраним в контекст
		ctx := usercontext.WithSession(r.Context(), session)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
