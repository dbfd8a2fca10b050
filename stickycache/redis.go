// Replication layer for Cache, letting sticky assignments survive a worker
// restart or be shared across a fleet of workers fronting the same cluster
// (SPEC_FULL.md §9.1: additive to spec.md §4.10's in-process-only baseline,
// opt-in via Config.StickyCache.RedisURL).
//
// Grounded on quarry/adapter/redis/redis.go's config-defaulting and
// attempts-with-backoff publish loop, adapted from "publish a run-completed
// event to a channel" to "replicate one sticky assignment as a key". An
// assignment is read back from Redis one key at a time, on a local-cache
// miss; there is no bulk restore at startup.
package stickycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/waystation/log"
	"github.com/justapithecus/waystation/types"
)

// Store is the no-context Get/Put shape Cluster needs from a sticky cache.
// Cache implements it directly; RedisReplicator implements it by bounding
// its Redis calls with an internal context instead of one threaded in by
// the caller, since Cluster's call site (pickCacheLocked) runs under its
// own mutex rather than a request context.
type Store interface {
	Get(h types.StickyHash) (string, bool)
	Put(h types.StickyHash, memberKey string)
}

var _ Store = (*Cache)(nil)
var _ Store = (*RedisReplicator)(nil)

// DefaultReplicationTimeout is the per-operation timeout against Redis.
const DefaultReplicationTimeout = 5 * time.Second

// DefaultReplicationRetries is the number of retry attempts on failure.
const DefaultReplicationRetries = 3

// DefaultReplicationTTL is how long a replicated assignment survives in
// Redis after its last write (reads do not refresh it), matching the source's sticky cache being a best-effort
// hint rather than durable state.
const DefaultReplicationTTL = 24 * time.Hour

// RedisConfig configures the Redis-backed replication client.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// KeyPrefix namespaces replicated keys, typically the cluster name
	// (default "waystation:sticky").
	KeyPrefix string
	// Timeout is the per-operation timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
	// TTL is how long a replicated assignment lives in Redis (default 24h).
	TTL time.Duration
}

// DefaultKeyPrefix is used when RedisConfig.KeyPrefix is empty.
const DefaultKeyPrefix = "waystation:sticky"

// RedisReplicator mirrors sticky-hash assignments into Redis so they can be
// restored after a restart, or shared with other workers serving the same
// cluster. It wraps a local Cache: reads are served from the local Cache and
// only fall through to Redis on a local miss; writes go to both.
//
// RedisReplicator satisfies Store, the same no-context Get/Put shape Cache
// implements, so Cluster can hold either behind c.sticky without knowing
// which backs it.
type RedisReplicator struct {
	cfg    RedisConfig
	client *goredis.Client
	local  *Cache
	logger *log.Logger
}

// NewRedisReplicator builds a replicator pairing local with a Redis client
// built from cfg. logger may be nil; it is only used to report background
// replication failures (see Put). Returns an error if the URL is empty or
// invalid.
func NewRedisReplicator(cfg RedisConfig, local *Cache, logger *log.Logger) (*RedisReplicator, error) {
	if cfg.URL == "" {
		return nil, errors.New("stickycache: redis replicator requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("stickycache: invalid redis URL: %w", err)
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultReplicationTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("stickycache: retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultReplicationTTL
	}
	if local == nil {
		local = New()
	}

	return &RedisReplicator{
		cfg:    cfg,
		client: goredis.NewClient(opts),
		local:  local,
		logger: logger,
	}, nil
}

func (r *RedisReplicator) redisKey(h types.StickyHash) string {
	return r.cfg.KeyPrefix + ":" + strconv.FormatUint(uint64(h), 10)
}

// GetContext returns the member key assigned to h, consulting the local
// cache first and Redis only on a local miss. A Redis hit is written back
// into the local cache so subsequent lookups stay in-process.
func (r *RedisReplicator) GetContext(ctx context.Context, h types.StickyHash) (string, bool) {
	if v, ok := r.local.Get(h); ok {
		return v, true
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	v, err := r.client.Get(opCtx, r.redisKey(h)).Result()
	if err != nil {
		return "", false
	}

	r.local.Put(h, v)
	return v, true
}

// Get implements Store: Cluster calls this without a context (pickCacheLocked
// runs under Cluster's own mutex, not a request context), so GetContext is
// bounded by cfg.Timeout against context.Background() instead.
func (r *RedisReplicator) Get(h types.StickyHash) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()
	return r.GetContext(ctx, h)
}

// PutContext records that h is assigned to memberKey in the local cache
// immediately, then replicates the assignment to Redis with retries. The
// local write always succeeds even if replication ultimately fails;
// PutContext returns the replication error, if any, for callers that want
// to log it.
func (r *RedisReplicator) PutContext(ctx context.Context, h types.StickyHash, memberKey string) error {
	r.local.Put(h, memberKey)

	var lastErr error
	attempts := 1 + r.cfg.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stickycache: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 200 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("stickycache: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		opCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		lastErr = r.client.Set(opCtx, r.redisKey(h), memberKey, r.cfg.TTL).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("stickycache: replication failed after %d attempts: %w", attempts, lastErr)
}

// Put implements Store: the local write happens synchronously, so a
// following Get observes it immediately, and replication to Redis runs on a
// background goroutine bounded by cfg.Timeout*(1+cfg.Retries) plus one
// second so a slow or
// unreachable Redis never blocks the caller (pickCacheLocked runs under
// Cluster's mutex). A replication failure is logged, not returned, since
// there is no caller left to return it to.
func (r *RedisReplicator) Put(h types.StickyHash, memberKey string) {
	r.local.Put(h, memberKey)

	go func() {
		budget := r.cfg.Timeout*time.Duration(1+r.cfg.Retries) + time.Second
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		if err := r.PutContext(ctx, h, memberKey); err != nil && r.logger != nil {
			r.logger.Warn("sticky assignment replication failed", map[string]any{"error": err.Error()})
		}
	}()
}

// RemoveContext deletes h from the local cache and best-effort from Redis.
func (r *RedisReplicator) RemoveContext(ctx context.Context, h types.StickyHash) {
	r.local.Remove(h)

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	r.client.Del(opCtx, r.redisKey(h))
}

// Remove implements Store's optional counterpart: deletes h locally and
// best-effort from Redis in the background, matching Put's no-blocking
// contract.
func (r *RedisReplicator) Remove(h types.StickyHash) {
	r.local.Remove(h)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()
		r.client.Del(ctx, r.redisKey(h))
	}()
}

// Close releases the Redis client's resources.
func (r *RedisReplicator) Close() error {
	return r.client.Close()
}
