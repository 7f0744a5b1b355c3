package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"tutor-voice-server/internal/domain/lipsync"
	"tutor-voice-server/internal/domain/voicecache/model"
	"tutor-voice-server/internal/platform/errors"
)

// putScript writes the artifact payload and creates the usage hash only
// when the entry is new. KEYS: artifact, usage. ARGV: payload, expire-at ms, now ms.
var putScript = redis.NewScript(`
local existed = redis.call('EXISTS', KEYS[2])
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
if existed == 0 then
  redis.call('HSET', KEYS[2], 'times_used', 1, 'last_used_at', ARGV[3], 'created_at', ARGV[3])
end
redis.call('PEXPIREAT', KEYS[2], ARGV[2])
return existed
`)

// touchScript bumps usage and returns payload plus usage in one round trip.
// A usage hash recreated by the increment inherits the payload's expiry.
// KEYS: artifact, usage. ARGV: now ms.
var touchScript = redis.NewScript(`
local payload = redis.call('GET', KEYS[1])
if not payload then
  return false
end
redis.call('HINCRBY', KEYS[2], 'times_used', 1)
redis.call('HSET', KEYS[2], 'last_used_at', ARGV[1])
if redis.call('PTTL', KEYS[2]) < 0 then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl > 0 then
    redis.call('PEXPIRE', KEYS[2], ttl)
  end
end
local usage = redis.call('HMGET', KEYS[2], 'times_used', 'last_used_at', 'created_at')
return {payload, usage[1], usage[2], usage[3]}
`)

type redisStore struct {
	client *redis.Client
	prefix string
	now    clock
}

// NewRedis constructs a redis-backed store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, errors.New(errors.KindConfig, "voicecache.redis.new", "redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New(errors.KindConfig, "voicecache.redis.new", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.KindDependency, "voicecache.redis.ping", "redis ping failed", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "voice:"
	}
	return &redisStore{client: client, prefix: prefix, now: utcNow}, nil
}

func (s *redisStore) Driver() string { return DriverRedis }

func (s *redisStore) artifactKey(key string) string { return s.prefix + "artifact:" + key }

func (s *redisStore) usageKey(key string) string { return s.prefix + "usage:" + key }

func (s *redisStore) Get(ctx context.Context, key string) (*model.Artifact, error) {
	var payload *redis.StringCmd
	var usage *redis.SliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		payload = p.Get(ctx, s.artifactKey(key))
		usage = p.HMGet(ctx, s.usageKey(key), "times_used", "last_used_at", "created_at")
		return nil
	})
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return nil, errors.Wrap(errors.KindStorage, "voicecache.redis.get", "voice cache query failed", err)
	}
	raw, err := payload.Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "voicecache.redis.get", "voice cache query failed", err)
	}
	return s.decode(raw, usage.Val())
}

func (s *redisStore) Put(ctx context.Context, artifact *model.Artifact) error {
	if artifact == nil || artifact.Key == "" {
		return fmt.Errorf("artifact key required")
	}
	now := s.now()
	next := artifact.Prepared(now)
	if next.Expired(now) {
		return nil
	}
	raw, err := sonic.Marshal(next)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "voicecache.redis.encode", "failed to encode artifact", err)
	}

	err = putScript.Run(ctx, s.client,
		[]string{s.artifactKey(next.Key), s.usageKey(next.Key)},
		string(raw), next.ExpiresAt.UnixMilli(), now.UnixMilli(),
	).Err()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "voicecache.redis.put", "failed to store artifact", err)
	}
	return nil
}

func (s *redisStore) Touch(ctx context.Context, key string) (*model.Artifact, error) {
	res, err := touchScript.Run(ctx, s.client,
		[]string{s.artifactKey(key), s.usageKey(key)},
		s.now().UnixMilli(),
	).Slice()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "voicecache.redis.touch", "voice cache update failed", err)
	}
	if len(res) != 4 {
		return nil, errors.New(errors.KindStorage, "voicecache.redis.touch", "unexpected script reply")
	}
	raw, _ := res[0].(string)
	return s.decode(raw, res[1:])
}

// decode combines the JSON payload with usage values from the hash. Redis
// expiry is authoritative, the embedded ExpiresAt is re-checked for skew.
func (s *redisStore) decode(raw string, usage []interface{}) (*model.Artifact, error) {
	var a model.Artifact
	if err := sonic.UnmarshalString(raw, &a); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "voicecache.redis.decode", "failed to decode artifact", err)
	}
	if a.Expired(s.now()) {
		return nil, ErrNotFound
	}
	if len(usage) == 3 {
		if n, ok := parseInt(usage[0]); ok {
			a.TimesUsed = n
		}
		if ms, ok := parseInt(usage[1]); ok {
			a.LastUsedAt = time.UnixMilli(ms).UTC()
		}
		if ms, ok := parseInt(usage[2]); ok {
			a.CreatedAt = time.UnixMilli(ms).UTC()
		}
	}
	if a.Cues == nil {
		a.Cues = []lipsync.Cue{}
	}
	return &a, nil
}

func parseInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	case int64:
		return t, true
	default:
		return 0, false
	}
}

func (s *redisStore) Count(ctx context.Context) (int64, error) {
	var cursor uint64
	var n int64
	pattern := s.prefix + "artifact:*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, errors.Wrap(errors.KindStorage, "voicecache.redis.count", "failed to count artifacts", err)
		}
		n += int64(len(keys))
		if next == 0 {
			break
		}
		cursor = next
	}
	return n, nil
}

// PurgeExpired is a no-op: redis expires keys itself.
func (s *redisStore) PurgeExpired(context.Context) (int64, error) {
	return 0, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
