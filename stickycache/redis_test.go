package stickycache

import (
	"context"
	"testing"
	"time"

	"github.com/justapithecus/waystation/types"
)

func TestNewRedisReplicator_RejectsEmptyURL(t *testing.T) {
	_, err := NewRedisReplicator(RedisConfig{}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an empty URL")
	}
}

func TestNewRedisReplicator_RejectsInvalidURL(t *testing.T) {
	_, err := NewRedisReplicator(RedisConfig{URL: "not-a-redis-url"}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an invalid URL")
	}
}

func TestNewRedisReplicator_AppliesDefaults(t *testing.T) {
	r, err := NewRedisReplicator(RedisConfig{URL: "redis://127.0.0.1:6379/0"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.cfg.KeyPrefix != DefaultKeyPrefix {
		t.Fatalf("expected default key prefix, got %q", r.cfg.KeyPrefix)
	}
	if r.cfg.Timeout != DefaultReplicationTimeout {
		t.Fatalf("expected default timeout, got %v", r.cfg.Timeout)
	}
	if r.cfg.TTL != DefaultReplicationTTL {
		t.Fatalf("expected default TTL, got %v", r.cfg.TTL)
	}
	if r.local == nil {
		t.Fatal("expected a local cache to be created when none is supplied")
	}
}

func TestNewRedisReplicator_RejectsNegativeRetries(t *testing.T) {
	_, err := NewRedisReplicator(RedisConfig{URL: "redis://127.0.0.1:6379/0", Retries: -1}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for negative retries")
	}
}

func TestRedisReplicator_RedisKeyUsesPrefixAndHash(t *testing.T) {
	r, err := NewRedisReplicator(RedisConfig{URL: "redis://127.0.0.1:6379/0", KeyPrefix: "cluster-a"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := r.redisKey(types.StickyHash(42))
	want := "cluster-a:42"
	if got != want {
		t.Fatalf("redisKey = %q, want %q", got, want)
	}
}

func TestRedisReplicator_GetServesFromLocalCacheWithoutContactingRedis(t *testing.T) {
	local := New()
	local.Put(types.StickyHash(7), "member-a")

	r, err := NewRedisReplicator(RedisConfig{URL: "redis://127.0.0.1:6379/0", Timeout: time.Millisecond}, local, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	v, ok := r.GetContext(context.Background(), types.StickyHash(7))
	if !ok || v != "member-a" {
		t.Fatalf("expected local hit, got (%q, %v)", v, ok)
	}
}

func TestRedisReplicator_GetNoContextServesFromLocalCache(t *testing.T) {
	local := New()
	local.Put(types.StickyHash(9), "member-b")

	r, err := NewRedisReplicator(RedisConfig{URL: "redis://127.0.0.1:6379/0", Timeout: time.Millisecond}, local, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	v, ok := r.Get(types.StickyHash(9))
	if !ok || v != "member-b" {
		t.Fatalf("expected local hit, got (%q, %v)", v, ok)
	}
}

func TestRedisReplicator_SatisfiesStore(t *testing.T) {
	var _ Store = (*RedisReplicator)(nil)
	var _ Store = (*Cache)(nil)
}
