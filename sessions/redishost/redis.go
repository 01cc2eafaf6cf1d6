package redishost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for Redis-backed sessions.Backend. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=httpkit:sessions:"`
	// TTL is the sliding lifetime of a session. ENV: SESSIONS_TTL
	TTL time.Duration `env:"SESSIONS_TTL,default=24h"`
	// Strict refuses client-supplied IDs that do not exist. ENV: SESSIONS_STRICT
	Strict bool `env:"SESSIONS_STRICT,default=false"`
}

// Host stores each session as one JSON document under <prefix>data:<id>.
type Host struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	strict    bool
}

func New(cfg Config) (*Host, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), cfg)
}

// NewWithClient builds a Host on an existing client. cfg.RedisAddr is ignored.
func NewWithClient(cl *redis.Client, cfg Config) (*Host, error) {
	if err := cl.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "httpkit:sessions:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Host{client: cl, keyPrefix: prefix, ttl: ttl, strict: cfg.Strict}, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv() (*Host, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode redis session config: %w", err)
	}
	return New(cfg)
}

// Close closes the Redis client.
func (h *Host) Close() error { return h.client.Close() }

func (h *Host) dataKey(id string) string { return h.keyPrefix + "data:" + id }

func (h *Host) Open(ctx context.Context, name, id string) (string, error) {
	if id != "" && sessions.ValidID(id) {
		ok, err := h.client.Expire(ctx, h.dataKey(id), h.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
		if !h.strict {
			if _, err := h.client.SetNX(ctx, h.dataKey(id), "{}", h.ttl).Result(); err != nil {
				return "", err
			}
			return id, nil
		}
	}

	for {
		id = uuid.NewString()
		ok, err := h.client.SetNX(ctx, h.dataKey(id), "{}", h.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
}

func (h *Host) Read(ctx context.Context, id string) (map[string]any, error) {
	raw, err := h.client.Get(ctx, h.dataKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, err
	}
	items := make(map[string]any)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return items, nil
}

func (h *Host) Write(ctx context.Context, id string, items map[string]any) error {
	if !sessions.ValidID(id) {
		return sessions.ErrInvalidID
	}
	if items == nil {
		items = map[string]any{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	return h.client.Set(ctx, h.dataKey(id), raw, h.ttl).Err()
}

var regenerateScript = redis.NewScript(`
local old = KEYS[1]
local new = KEYS[2]
if redis.call('EXISTS', old) == 0 then
  return 0
end
if redis.call('EXISTS', new) == 1 then
  return -1
end
redis.call('RENAME', old, new)
redis.call('EXPIRE', new, ARGV[1])
return 1
`)

func (h *Host) Regenerate(ctx context.Context, id string) (string, error) {
	for {
		next := uuid.NewString()
		keys := []string{h.dataKey(id), h.dataKey(next)}
		res, err := regenerateScript.Run(ctx, h.client, keys, int64(h.ttl/time.Second)).Int()
		if err != nil {
			return "", err
		}
		switch res {
		case 1:
			return next, nil
		case 0:
			return "", sessions.ErrSessionNotFound
		}
	}
}

func (h *Host) Destroy(ctx context.Context, id string, purge bool) error {
	if !purge {
		return nil
	}
	// Deletion should not be abandoned because the request went away.
	c := context.WithoutCancel(ctx)
	return h.client.Del(c, h.dataKey(id)).Err()
}

// Interface compliance
var _ sessions.Backend = (*Host)(nil)
