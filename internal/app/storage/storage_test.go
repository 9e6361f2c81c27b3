package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(created time.Time) *models.Session {
	return &models.Session{
		ID:          uuid.New(),
		AccessToken: "token-" + uuid.NewString(),
		Profile: models.UserProfile{
			FullName: "Jane Doe",
			Email:    "jane@example.com",
		},
		CreateTime: created.UTC().Truncate(time.Microsecond),
	}
}

func testStorager(t *testing.T, s Storager) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	session := newSession(time.Now())
	require.NoError(t, s.SaveSession(ctx, session))
	assert.ErrorIs(t, s.SaveSession(ctx, session), ErrSessionExists)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.AccessToken, got.AccessToken)
	assert.Equal(t, session.Profile, got.Profile)
	assert.True(t, session.CreateTime.Equal(got.CreateTime))

	require.NoError(t, s.DeleteSession(ctx, session.ID))
	_, err = s.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	// повторное удаление не ошибка
	require.NoError(t, s.DeleteSession(ctx, session.ID))
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStorager(t, s)
}

func TestMemoryCleanupExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	old := newSession(time.Now().Add(-2 * time.Hour))
	fresh := newSession(time.Now())
	require.NoError(t, s.SaveSession(ctx, old))
	require.NoError(t, s.SaveSession(ctx, fresh))

	ra, err := s.CleanupExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ra)

	_, err = s.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.GetSession(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestNewStorageDefaultsToMemory(t *testing.T) {
	s, err := NewStorage(context.Background(), "", "", time.Hour)
	require.NoError(t, err)
	_, ok := s.(*memory)
	assert.True(t, ok)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		t.Skip("DATABASE_URI not set")
	}
	// миграции ищутся относительно корня репозитория
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir("../../.."))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	s, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	testStorager(t, s)

	ctx := context.Background()
	old := newSession(time.Now().Add(-48 * time.Hour))
	require.NoError(t, s.SaveSession(ctx, old))
	ra, err := s.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ra, int64(1))
	_, err = s.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedis(t *testing.T) {
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	s, err := NewRedis(context.Background(), address, time.Minute)
	require.NoError(t, err)
	defer s.Close()
	testStorager(t, s)

	// истекшая сессия не сохраняется
	ctx := context.Background()
	old := newSession(time.Now().Add(-time.Hour))
	require.NoError(t, s.SaveSession(ctx, old))
	_, err = s.GetSession(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
