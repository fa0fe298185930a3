package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
	"github.com/samatributa/invoicegen/internal/counter/domain"
)

// advanceScript raises KEYS[1] to ARGV[1] when the stored value is lower.
// Missing or non-numeric values count as zero.
const advanceScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0") or 0
local target = tonumber(ARGV[1])
if current < target then
  redis.call("SET", KEYS[1], ARGV[1])
  return {target, 1}
end
return {current, 0}
`

type Store struct {
	client  redis.UniversalClient
	advance *redis.Script
}

var (
	_ domain.Store    = (*Store)(nil)
	_ domain.Advancer = (*Store)(nil)
)

func NewStore(client redis.UniversalClient) *Store {
	return &Store{
		client:  client,
		advance: redis.NewScript(advanceScript),
	}
}

func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := s.check(key); err != nil {
		return 0, false, err
	}
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: key %s holds %q", domain.ErrCorruptValue, key, raw)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value int64) error {
	if err := s.check(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Advance(ctx context.Context, key string, value int64) (int64, bool, error) {
	if err := s.check(key); err != nil {
		return 0, false, err
	}
	res, err := s.advance.Run(ctx, s.client, []string{key}, value).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis advance %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis advance %s: unexpected reply %v", key, res)
	}
	return res[0], res[1] == 1, nil
}

func (s *Store) check(key string) error {
	if s == nil || s.client == nil {
		return domain.ErrNotConfigured
	}
	if key == "" {
		return domain.ErrEmptyKey
	}
	return nil
}
