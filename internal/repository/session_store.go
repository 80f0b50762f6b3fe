package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"brewpos/internal/checkout"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired checkout sessions.
var ErrSessionNotFound = errors.New("checkout session not found")

const sessionKeyPrefix = "checkout:session:"

// SessionStore keeps checkout sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*checkout.Session, error)
	Save(ctx context.Context, s *checkout.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type redisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore stores sessions as JSON strings that expire after ttl of
// inactivity.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id uuid.UUID) string { return sessionKeyPrefix + id.String() }

func (s *redisSessionStore) Get(ctx context.Context, id uuid.UUID) (*checkout.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess checkout.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *redisSessionStore) Save(ctx context.Context, sess *checkout.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err()
}

func (s *redisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.rdb.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
