// Package redis fronts a durable comparison store with a Redis read-through
// cache. Redis is best effort: its failures fall back to the durable store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
)

const keyPrefix = "fitgap:comparison:"

// Backing is the durable store behind the cache.
type Backing interface {
	Get(ctx context.Context, base, compare id.SnapshotID) (*models.Comparison, error)
	Put(ctx context.Context, c *models.Comparison) error
}

type Store struct {
	client  redis.Cmdable
	backing Backing
	ttl     time.Duration
	logger  *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(client redis.Cmdable, backing Backing, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		client:  client,
		backing: backing,
		ttl:     ttl,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cacheKey(base, compare id.SnapshotID) string {
	return keyPrefix + base.String() + ":" + compare.String()
}

func (s *Store) Get(ctx context.Context, base, compare id.SnapshotID) (*models.Comparison, error) {
	key := cacheKey(base, compare)
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c models.Comparison
		jsonErr := json.Unmarshal(raw, &c)
		if jsonErr == nil {
			return &c, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cached comparison", "key", key, "error", jsonErr)
	case errors.Is(err, redis.Nil):
	default:
		s.logger.WarnContext(ctx, "redis comparison read failed", "key", key, "error", err)
	}

	c, err := s.backing.Get(ctx, base, compare)
	if err != nil {
		return nil, err
	}
	s.setCache(ctx, c)
	return c, nil
}

// Put writes the durable store first; the cache only ever mirrors it.
func (s *Store) Put(ctx context.Context, c *models.Comparison) error {
	if err := s.backing.Put(ctx, c); err != nil {
		return err
	}
	s.setCache(ctx, c)
	return nil
}

func (s *Store) setCache(ctx context.Context, c *models.Comparison) {
	raw, err := json.Marshal(c)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to encode comparison for cache", "error", err)
		return
	}
	key := cacheKey(c.BaseSnapshotID, c.CompareSnapshotID)
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "redis comparison write failed", "key", key, "error", err)
	}
}
