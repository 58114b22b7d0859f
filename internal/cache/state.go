package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

const maxTransitionAttempts = 5

// State returns the refresh state of key. A key never seen is Stale.
func (c *Cache) State(ctx context.Context, key Key) (domain.RefreshState, error) {
	value, err := c.client.Get(ctx, key.stateKey()).Result()
	if errors.Is(err, redis.Nil) {
		return domain.RefreshStale, nil
	}
	if err != nil {
		return "", apperrors.WrapCacheError(err)
	}
	return domain.ParseRefreshState(value)
}

// Transition applies event to the state of key and returns the new state.
// Concurrent transitions on the same key are serialized with WATCH, so an
// invalidation that lands during a fetch is never overwritten by it. A
// Loading state is written with the loading TTL.
func (c *Cache) Transition(ctx context.Context, key Key, event domain.RefreshEvent) (domain.RefreshState, error) {
	var next domain.RefreshState

	txf := func(tx *redis.Tx) error {
		value, err := tx.Get(ctx, key.stateKey()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		current, err := domain.ParseRefreshState(value)
		if err != nil {
			current = domain.RefreshStale
		}

		next, err = current.Next(event)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key.stateKey(), string(next), c.stateTTL(next))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		err := c.client.Watch(ctx, txf, key.stateKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", apperrors.WrapCacheError(err)
		}
		return next, nil
	}

	return "", apperrors.WrapCacheError(fmt.Errorf("transition of %s kept conflicting", key))
}

// Invalidate marks every key Stale. Cached data is kept so it can still be
// shown while a refetch is pending.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	for _, key := range keys {
		if _, err := c.Transition(ctx, key, domain.EventInvalidate); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateKind marks every cached view of kind Stale, across all users when
// userID is zero. It returns the number of views invalidated.
func (c *Cache) InvalidateKind(ctx context.Context, userID int64, kind Kind) (int, error) {
	user := "*"
	if userID != 0 {
		user = fmt.Sprintf("%d", userID)
	}
	return c.InvalidatePattern(ctx, fmt.Sprintf("%s:%s:%s:*:state", keyPrefix, user, kind))
}

// InvalidatePattern marks every state key matching pattern Stale. It walks
// the keyspace with SCAN so it never blocks redis.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor uint64
		count  int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return count, apperrors.WrapCacheError(err)
		}

		if len(keys) > 0 {
			_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, k := range keys {
					pipe.Set(ctx, k, string(domain.RefreshStale), redis.KeepTTL)
				}
				return nil
			})
			if err != nil {
				return count, apperrors.WrapCacheError(err)
			}
			count += len(keys)
		}

		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Ping reports whether redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
