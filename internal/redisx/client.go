package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Admin session token: session:admin:{token} -> "1"
	keySession = "session:admin:%s"

	ttlSession = 24 * time.Hour
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// Sessions stores admin login tokens in Redis with a sliding-free TTL.
type Sessions struct{ RDB *redis.Client }

func (s *Sessions) Create(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := s.RDB.Set(ctx, fmt.Sprintf(keySession, token), "1", ttlSession).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Sessions) Valid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	n, err := s.RDB.Exists(ctx, fmt.Sprintf(keySession, token)).Result()
	return err == nil && n > 0
}
