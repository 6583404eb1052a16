package monitoring

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const pausedMember = "building"

// toggleScript flips set membership atomically and returns 1 when the member
// is present afterwards.
var toggleScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
  redis.call("SREM", KEYS[1], ARGV[1])
  return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`)

// RedisStore keeps the flags in Redis so several API replicas share them.
// Only the exceptions are stored: a paused marker and the set of disabled
// rooms.
type RedisStore struct {
	client      *redis.Client
	pausedKey   string
	disabledKey string
}

// NewRedisStore creates a store using keys under prefix
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:      client,
		pausedKey:   prefix + ":monitoring:paused",
		disabledKey: prefix + ":monitoring:disabled",
	}
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) Enabled(ctx context.Context) (bool, error) {
	paused, err := s.client.SIsMember(ctx, s.pausedKey, pausedMember).Result()
	if err != nil {
		return false, fmt.Errorf("read global monitoring flag: %w", err)
	}
	return !paused, nil
}

func (s *RedisStore) ToggleGlobal(ctx context.Context) (bool, error) {
	paused, err := s.toggle(ctx, s.pausedKey, pausedMember)
	if err != nil {
		return false, fmt.Errorf("toggle global monitoring: %w", err)
	}
	return !paused, nil
}

func (s *RedisStore) RoomEnabled(ctx context.Context, roomID string) (bool, error) {
	disabled, err := s.client.SIsMember(ctx, s.disabledKey, roomID).Result()
	if err != nil {
		return false, fmt.Errorf("read monitoring flag for room %s: %w", roomID, err)
	}
	return !disabled, nil
}

func (s *RedisStore) ToggleRoom(ctx context.Context, roomID string) (bool, error) {
	disabled, err := s.toggle(ctx, s.disabledKey, roomID)
	if err != nil {
		return false, fmt.Errorf("toggle monitoring for room %s: %w", roomID, err)
	}
	return !disabled, nil
}

func (s *RedisStore) RoomStates(ctx context.Context, roomIDs []string) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, s.disabledKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read room monitoring flags: %w", err)
	}
	disabled := make(map[string]bool, len(members))
	for _, m := range members {
		disabled[m] = true
	}

	states := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		states[id] = !disabled[id]
	}
	return states, nil
}

func (s *RedisStore) toggle(ctx context.Context, key, member string) (bool, error) {
	present, err := toggleScript.Run(ctx, s.client, []string{key}, member).Int64()
	if err != nil {
		return false, err
	}
	return present == 1, nil
}
