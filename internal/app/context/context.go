package context

import (
	"context"
	"fmt"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
)

type sessionCtxKeyType string

var ErrSessionFromContext = fmt.Errorf("no session in context")

const sessionCtxKey sessionCtxKeyType = "session"

func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

func GetSession(ctx context.Context) (*models.Session, error) {
	session, ok := ctx.Value(sessionCtxKey).(*models.Session)
	if !ok || session == nil {
		return nil, ErrSessionFromContext
	}
	return session, nil
}
