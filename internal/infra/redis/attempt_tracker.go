package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptTracker stores attempt start times in Redis so any instance can
// compute elapsed time at submission.
// Starts are stored as: SET attempt:{quizID}:{userID} {unix millis} EX ttl
type AttemptTracker struct {
	client *redis.Client
}

func NewAttemptTracker(client *redis.Client) *AttemptTracker {
	return &AttemptTracker{client: client}
}

func (t *AttemptTracker) Begin(ctx context.Context, quizID, userID string, at time.Time, ttl time.Duration) error {
	if err := t.client.Set(ctx, t.key(quizID, userID), at.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("record attempt start: %w", err)
	}
	return nil
}

func (t *AttemptTracker) StartedAt(ctx context.Context, quizID, userID string) (time.Time, bool, error) {
	raw, err := t.client.Get(ctx, t.key(quizID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read attempt start: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt start: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

func (t *AttemptTracker) Clear(ctx context.Context, quizID, userID string) error {
	return t.client.Del(ctx, t.key(quizID, userID)).Err()
}

func (t *AttemptTracker) key(quizID, userID string) string {
	return "attempt:" + quizID + ":" + userID
}
