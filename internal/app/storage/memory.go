package storage

import (
	"context"
	"sync"
	"time"

	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
)

type memory struct {
	mu       sync.RWMutex
	sessions map[models.SessionID]models.Session
}

func NewMemory() Storager {
	return &memory{
		sessions: make(map[models.SessionID]models.Session),
	}
}

func (m *memory) SaveSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return ErrSessionExists
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memory) GetSession(ctx context.Context, id models.SessionID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (m *memory) DeleteSession(ctx context.Context, id models.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var ra int64
	for id, session := range m.sessions {
		if session.Expired(now, ttl) {
			delete(m.sessions, id)
			ra++
		}
	}
	return ra, nil
}

func (m *memory) Ping(ctx context.Context) error {
	return nil
}

func (m *memory) Close() error {
	return nil
}
