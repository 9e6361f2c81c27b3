package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serg2014/go-payouts-dashboard/internal/app/models"
	"github.com/serg2014/go-payouts-dashboard/internal/logger"
)

const sessionKeyPrefix = "payouts-dashboard:session:"

type redisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

type redisSession struct {
	AccessToken string             `json:"access_token"`
	Profile     models.UserProfile `json:"profile"`
	CreateTime  time.Time          `json:"create_time"`
}

// NewRedis сессии живут ttl, истекшие удаляет сам redis
func NewRedis(ctx context.Context, address string, ttl time.Duration) (Storager, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Log.Info("Connected to redis")
	return &redisStorage{client: client, ttl: ttl}, nil
}

func sessionKey(id models.SessionID) string {
	return sessionKeyPrefix + id.String()
}

func (s *redisStorage) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(redisSession{
		AccessToken: session.AccessToken,
		Profile:     session.Profile,
		CreateTime:  session.CreateTime,
	})
	if err != nil {
		return fmt.Errorf("failed marshal session: %w", err)
	}
	ttl := s.ttl - time.Since(session.CreateTime)
	if ttl <= 0 {
		return nil
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed SaveSession: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (s *redisStorage) GetSession(ctx context.Context, id models.SessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed GetSession: %w", err)
	}
	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("bad session json: %w", err)
	}
	return &models.Session{
		ID:          id,
		AccessToken: rs.AccessToken,
		Profile:     rs.Profile,
		CreateTime:  rs.CreateTime,
	}, nil
}

func (s *redisStorage) DeleteSession(ctx context.Context, id models.SessionID) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed DeleteSession: %w", err)
	}
	return nil
}

// CleanupExpired ничего не делает, ключи удаляются по TTL
func (s *redisStorage) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	return 0, nil
}

func (s *redisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisStorage) Close() error {
	return s.client.Close()
}
