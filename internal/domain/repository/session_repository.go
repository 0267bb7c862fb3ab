package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// Find returns the live session for the token. Expired sessions are purged
	// and reported as not found.
	Find(ctx context.Context, token string) (*model.Session, error)
	// Delete removes the session and reports whether one was actually removed,
	// so logout can stay idempotent while still distinguishing the first call.
	Delete(ctx context.Context, token string) (bool, error)
}

// redisSessionRepository keeps sessions under session:<token> with a TTL equal
// to the remaining session lifetime, so Redis itself purges expired tokens.
type redisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func sessionKey(token string) string {
	return "session:" + token
}

func (r *redisSessionRepository) Create(ctx context.Context, s *model.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", common.ErrBadRequest)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redisSessionRepository.Create: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Find(ctx context.Context, token string) (*model.Session, error) {
	payload, err := r.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisSessionRepository.Find: %w", err)
	}
	session := &model.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("redisSessionRepository.Find unmarshal: %w", err)
	}
	// TTL should cover this, but the wall-clock check is authoritative.
	if session.Expired(time.Now()) {
		r.rdb.Del(ctx, sessionKey(token))
		return nil, common.ErrNotFound
	}
	return session, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, token string) (bool, error) {
	removed, err := r.rdb.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redisSessionRepository.Delete: %w", err)
	}
	return removed > 0, nil
}
