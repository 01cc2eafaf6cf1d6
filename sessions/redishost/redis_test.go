package redishost

import (
	"context"
	"testing"
	"time"

	"github.com/ggoodman/httpkit/sessions"
	"github.com/ggoodman/httpkit/sessions/sessionhosttest"
	"github.com/redis/go-redis/v9"
)

func TestRedisSessionHost(t *testing.T) {
	// Quick availability check to allow graceful skip in environments without Redis
	h, err := NewFromEnv()
	if err != nil {
		t.Skipf("skipping redis session host tests: %v", err)
		return
	}
	_ = h.Close()

	sessionhosttest.RunBackendTests(t, func(t *testing.T) sessions.Backend {
		hh, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv: %v", err)
		}
		t.Cleanup(func() { _ = hh.Close() })
		return hh
	})
}

func TestRedisTTLIsApplied(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	h, err := NewWithClient(client, Config{KeyPrefix: "httpkit:test:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewWithClient: %v", err)
	}
	defer h.Close()

	id, err := h.Open(ctx, sessions.DefaultName, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Destroy(ctx, id, true)

	ttl, err := client.TTL(ctx, h.dataKey(id)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	next, err := h.Regenerate(ctx, id)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	defer h.Destroy(ctx, next, true)
	if ttl, _ := client.TTL(ctx, h.dataKey(next)).Result(); ttl <= 0 {
		t.Fatalf("regenerated key lost its ttl: %v", ttl)
	}
}

func TestStrictModeRejectsUnknownID(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	h, err := NewWithClient(client, Config{KeyPrefix: "httpkit:test:", Strict: true})
	if err != nil {
		t.Fatalf("NewWithClient: %v", err)
	}
	defer h.Close()

	id, err := h.Open(ctx, sessions.DefaultName, "0123456789abcdef-strict")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Destroy(ctx, id, true)
	if id == "0123456789abcdef-strict" {
		t.Fatal("strict mode adopted an unknown client id")
	}
}
