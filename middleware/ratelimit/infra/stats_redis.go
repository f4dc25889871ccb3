package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsConfig struct {
	// Prefix namespaces every hash. Surrounding colons are trimmed.
	Prefix string
	// TTL applies to minute buckets and per-key hashes; the total, tier and
	// route hashes are cumulative and never expire.
	TTL time.Duration
	// Bucket is "minute" or "none".
	Bucket    string
	TrackKeys bool
}

// RedisStatsStore aggregates admission decisions from every gateway instance
// in a few Redis hashes:
//
//	<prefix>:total              allowed|denied
//	<prefix>:tier               <tier>:allowed|denied
//	<prefix>:route              <tier> <METHOD> <route>:allowed|denied
//	<prefix>:minute:<yyyymmddhhmm>  <tier>:allowed|denied
//	<prefix>:key:<route key>    allowed|denied
//
// Admission itself stays per process; this is observation only.
type RedisStatsStore struct {
	rdb redis.Cmdable
	cfg RedisStatsConfig
}

func NewRedisStatsStore(rdb redis.Cmdable, cfg RedisStatsConfig) *RedisStatsStore {
	cfg.Prefix = strings.Trim(cfg.Prefix, ":")
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit:stats"
	}
	cfg.Bucket = strings.ToLower(strings.TrimSpace(cfg.Bucket))
	if cfg.Bucket == "" {
		cfg.Bucket = "minute"
	}
	return &RedisStatsStore{rdb: rdb, cfg: cfg}
}

func (s *RedisStatsStore) key(parts ...string) string {
	return s.cfg.Prefix + ":" + strings.Join(parts, ":")
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	tier := ev.Tier.String()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.key("total"), outcome, 1)
	pipe.HIncrBy(ctx, s.key("tier"), tier+":"+outcome, 1)
	pipe.HIncrBy(ctx, s.key("route"), tier+" "+ev.Method+" "+ev.Path+":"+outcome, 1)

	if s.cfg.Bucket == "minute" {
		bucket := s.key("minute", at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucket, tier+":"+outcome, 1)
		s.expire(ctx, pipe, bucket)
	}
	if s.cfg.TrackKeys && ev.Key != "" {
		perKey := s.key("key", string(ev.Key))
		pipe.HIncrBy(ctx, perKey, outcome, 1)
		s.expire(ctx, pipe, perKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if s.cfg.TTL > 0 {
		pipe.Expire(ctx, key, s.cfg.TTL)
	}
}

// Snapshot reads the cumulative hashes back. Minute buckets and per-key
// hashes are left to external tooling.
func (s *RedisStatsStore) Snapshot(ctx context.Context) (Snapshot, error) {
	pipe := s.rdb.Pipeline()
	total := pipe.HGetAll(ctx, s.key("total"))
	byTier := pipe.HGetAll(ctx, s.key("tier"))
	byRoute := pipe.HGetAll(ctx, s.key("route"))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("redis stats snapshot: %w", err)
	}

	snap := Snapshot{
		ByTier:  foldOutcomes(byTier.Val()),
		ByRoute: foldOutcomes(byRoute.Val()),
	}
	for outcome, raw := range total.Val() {
		n, _ := strconv.ParseInt(raw, 10, 64)
		snap.Total.addN(outcome, n)
	}
	return snap, nil
}

// foldOutcomes turns {"<name>:allowed": "3"} into {"<name>": {Allowed: 3}}.
func foldOutcomes(fields map[string]string) map[string]Counters {
	out := make(map[string]Counters)
	for field, raw := range fields {
		i := strings.LastIndexByte(field, ':')
		if i < 0 {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		c := out[field[:i]]
		c.addN(field[i+1:], n)
		out[field[:i]] = c
	}
	return out
}
