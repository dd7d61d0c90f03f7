package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
)

const (
	// sessionLockTTL bounds how long a crashed replica can hold a session.
	sessionLockTTL   = 2 * time.Minute
	sessionLockRetry = 50 * time.Millisecond
	unlockTimeout    = 5 * time.Second
)

// releaseLock deletes the lock only while it still carries the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisSessionRepository stores each conversation as a Redis list so that
// several service replicas share session history.
type redisSessionRepository struct {
	client   redis.UniversalClient
	ttl      time.Duration
	maxTurns int
	lockTTL  time.Duration
}

func NewRedisSessionRepository(client redis.UniversalClient, ttl time.Duration, maxTurns int) *redisSessionRepository {
	return &redisSessionRepository{
		client:   client,
		ttl:      ttl,
		maxTurns: maxTurns,
		lockTTL:  sessionLockTTL,
	}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID + ":turns"
}

func lockKey(sessionID string) string {
	return "session:" + sessionID + ":lock"
}

// Lock takes the session lock shared by all replicas, polling until it is
// free or ctx is done.
func (r *redisSessionRepository) Lock(ctx context.Context, sessionID string) (func(), error) {
	key, token := lockKey(sessionID), uuid.NewString()

	ticker := time.NewTicker(sessionLockRetry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("taking session lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()
		if err := releaseLock.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			slog.WarnContext(ctx, "Failed to release session lock", "sessionID", sessionID, logger.Err(err))
		}
	}, nil
}

func (r *redisSessionRepository) History(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, sessionKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session history: %w", err)
	}

	turns := make([]domain.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var turn domain.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decoding session turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append pushes the turns, trims and refreshes the expiry in one transaction.
func (r *redisSessionRepository) Append(ctx context.Context, sessionID string, turns ...domain.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encoding session turn: %w", err)
		}
		values = append(values, b)
	}

	key := sessionKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending session turns: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Reset(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("resetting session: %w", err)
	}
	return nil
}
