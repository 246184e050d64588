// Package redisstore keeps session snapshots in Redis so a restarted
// process can rebuild its registry.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arbiter/internal/session"
)

const (
	defaultPrefix = "arbiter"
	loadBatch     = 200
)

type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(p string) Option {
	return func(s *Store) {
		if p = strings.TrimSpace(p); p != "" {
			s.prefix = p
		}
	}
}

// WithTTL expires snapshots that are not rewritten within d. Zero keeps them forever.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// New connects to redisURL (redis:// or rediss://) and pings it.
func New(ctx context.Context, redisURL string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for snapshot store")
	}
	ro, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewFromClient(rdb, opts...), nil
}

func NewFromClient(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Save writes the snapshot and indexes its id in one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snap.ID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.gameKey(snap.ID), raw, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(snap.ID), Member: strconv.FormatUint(snap.ID, 10)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %d: %w", snap.ID, err)
	}
	return nil
}

// LoadAll returns every indexed snapshot in id order. Index entries whose
// snapshot expired are pruned.
func (s *Store) LoadAll(ctx context.Context) ([]session.Snapshot, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	out := make([]session.Snapshot, 0, len(ids))
	var stale []any
	for start := 0; start < len(ids); start += loadBatch {
		batch := ids[start:min(start+loadBatch, len(ids))]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = s.prefix + ":game:" + id
		}
		vals, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("read snapshots: %w", err)
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				stale = append(stale, batch[i])
				continue
			}
			var snap session.Snapshot
			if err := json.Unmarshal([]byte(str), &snap); err != nil {
				return nil, fmt.Errorf("decode snapshot %s: %w", batch[i], err)
			}
			out = append(out, snap)
		}
	}
	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune index: %w", err)
		}
	}
	return out, nil
}

func (s *Store) gameKey(id uint64) string {
	return s.prefix + ":game:" + strconv.FormatUint(id, 10)
}

func (s *Store) indexKey() string { return s.prefix + ":games" }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	return redis.ParseURL(u.String())
}
