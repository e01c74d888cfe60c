// Package redisstore backs the admin flow state with redis so a pending
// set-limit prompt survives process restarts and expires on its own.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func pendingLimitKey(adminID int64) string {
	return fmt.Sprintf("admin:pending_limit:%d", adminID)
}

func (s *Store) SetPendingLimit(ctx context.Context, adminID, targetID int64) error {
	return s.rdb.Set(ctx, pendingLimitKey(adminID), strconv.FormatInt(targetID, 10), s.ttl).Err()
}

func (s *Store) PendingLimit(ctx context.Context, adminID int64) (int64, bool, error) {
	raw, err := s.rdb.Get(ctx, pendingLimitKey(adminID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get pending limit: %w", err)
	}
	target, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad pending limit value %q: %w", raw, err)
	}
	return target, true, nil
}

func (s *Store) ClearPending(ctx context.Context, adminID int64) error {
	return s.rdb.Del(ctx, pendingLimitKey(adminID)).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
