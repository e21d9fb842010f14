package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"luna-bot/internal/user"
)

const activeUsersSet = "active_users"

// RedisStore keeps every per-user field under its own key, so individual
// writes are atomic at the service level and no rename discipline is needed.
// Cross-key aggregates (total users, total messages) are only eventually
// consistent with per-user writes and are computed by summation at read
// time, never cached.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (r *RedisStore) userKey(kind string, id int64) string {
	return r.key(kind, strconv.FormatInt(id, 10))
}

func (r *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	ids, err := r.client.SMembers(ctx, r.key(activeUsersSet)).Result()
	if err != nil {
		return nil, fmt.Errorf("load active users: %w", err)
	}

	snap := NewSnapshot()
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		var stats user.Stats
		if ok, err := r.getJSON(ctx, r.userKey("user_stats", id), &stats); err != nil {
			return nil, err
		} else if ok {
			snap.UserStats[id] = &stats
		}
		if g, err := r.client.Get(ctx, r.userKey("user_gender", id)).Result(); err == nil {
			snap.UserGender[id] = user.Gender(g)
		} else if err != redis.Nil {
			return nil, fmt.Errorf("load gender %d: %w", id, err)
		}
		var turns []user.Turn
		if ok, err := r.getJSON(ctx, r.userKey("user_context", id), &turns); err != nil {
			return nil, err
		} else if ok {
			snap.UserContext[id] = turns
		}
		var prem user.Premium
		if ok, err := r.getJSON(ctx, r.userKey("premium", id), &prem); err != nil {
			return nil, err
		} else if ok {
			snap.PremiumUsers[id] = &prem
		}
		var ach user.Achievements
		if ok, err := r.getJSON(ctx, r.userKey("achievements", id), &ach); err != nil {
			return nil, err
		} else if ok {
			ach.Normalize()
			snap.UserAchievements[id] = &ach
		}
	}
	if ts, err := r.client.Get(ctx, r.key("last_save")).Result(); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			snap.LastSave = t
		}
	}
	snap.ComputeTotals()
	return snap, nil
}

func (r *RedisStore) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	pipe := r.client.Pipeline()
	for id, stats := range snap.UserStats {
		if err := pipeSetJSON(ctx, pipe, r.userKey("user_stats", id), stats); err != nil {
			return err
		}
		pipe.SAdd(ctx, r.key(activeUsersSet), strconv.FormatInt(id, 10))
	}
	for id, g := range snap.UserGender {
		pipe.Set(ctx, r.userKey("user_gender", id), string(g), 0)
	}
	for id, turns := range snap.UserContext {
		if err := pipeSetJSON(ctx, pipe, r.userKey("user_context", id), turns); err != nil {
			return err
		}
	}
	for id, prem := range snap.PremiumUsers {
		if err := pipeSetJSON(ctx, pipe, r.userKey("premium", id), prem); err != nil {
			return err
		}
	}
	// a subscription evicted from memory must not resurrect on the next
	// load; drop the keys of users no longer premium
	for id := range snap.UserStats {
		if _, ok := snap.PremiumUsers[id]; !ok {
			pipe.Del(ctx, r.userKey("premium", id))
		}
	}
	for id, ach := range snap.UserAchievements {
		if err := pipeSetJSON(ctx, pipe, r.userKey("achievements", id), ach); err != nil {
			return err
		}
	}
	pipe.Set(ctx, r.key("last_save"), snap.LastSave.Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func pipeSetJSON(ctx context.Context, pipe redis.Pipeliner, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	pipe.Set(ctx, key, data, 0)
	return nil
}

func (r *RedisStore) IncrementCounter(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.key(key)).Result()
}

func (r *RedisStore) AddToSet(ctx context.Context, set, member string) error {
	return r.client.SAdd(ctx, r.key(set), member).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
