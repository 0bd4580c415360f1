// Package watchlist persists each user's set of watched coins.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coinwatch/internal/coin"
)

// DefaultKeyPrefix addresses a user's record as "users/{identity}".
const DefaultKeyPrefix = "users/"

// ErrNoIdentity is returned when the caller identity is empty.
var ErrNoIdentity = errors.New("watchlist: empty user identity")

// Store is a per-user set of coin symbols.
type Store interface {
	// Get returns the user's symbols in insertion order; an unknown user has
	// an empty watchlist.
	Get(ctx context.Context, user string) ([]coin.Symbol, error)
	// Add inserts symbol; adding a present symbol is a no-op.
	Add(ctx context.Context, user string, symbol coin.Symbol) error
	// Remove deletes symbol and reports whether it was present.
	Remove(ctx context.Context, user string, symbol coin.Symbol) (bool, error)
}

// Commander is the subset of redis.Cmdable used by RedisStore.
type Commander interface {
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZAddNX(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// RedisStore keeps every watchlist in its own sorted set. Members are
// symbols and scores are insertion times, so reads come back in the order
// coins were added. Each mutation is a single Redis command, which makes it
// atomic per user without any client-side locking.
type RedisStore struct {
	rdb    Commander
	prefix string
	now    func() time.Time
}

func NewRedisStore(rdb Commander, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(user string) (string, error) {
	if user == "" {
		return "", ErrNoIdentity
	}
	return s.prefix + user, nil
}

func (s *RedisStore) Get(ctx context.Context, user string) ([]coin.Symbol, error) {
	key, err := s.key(user)
	if err != nil {
		return nil, err
	}
	members, err := s.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("watchlist get %s: %w", key, err)
	}
	out := make([]coin.Symbol, 0, len(members))
	for _, m := range members {
		out = append(out, coin.Symbol(m))
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, user string, symbol coin.Symbol) error {
	key, err := s.key(user)
	if err != nil {
		return err
	}
	// NX keeps the original score, so re-adding does not reorder.
	z := redis.Z{Score: float64(s.now().UnixMicro()), Member: string(symbol)}
	if err := s.rdb.ZAddNX(ctx, key, z).Err(); err != nil {
		return fmt.Errorf("watchlist add %s to %s: %w", symbol, key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, user string, symbol coin.Symbol) (bool, error) {
	key, err := s.key(user)
	if err != nil {
		return false, err
	}
	n, err := s.rdb.ZRem(ctx, key, string(symbol)).Result()
	if err != nil {
		return false, fmt.Errorf("watchlist remove %s from %s: %w", symbol, key, err)
	}
	return n > 0, nil
}
