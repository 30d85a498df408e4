package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/logging"
	"github.com/voyagen/tvlineup/internal/models"
)

// Cache TTLs for different entity types.
const (
	ttlChannels = 1 * time.Minute
	ttlChannel  = 5 * time.Minute
	ttlPrograms = 2 * time.Minute
)

const (
	keyChannels     = "tvlineup:channels:all"
	keyChannelFmt   = "tvlineup:channel:%d"
	keyProgramsFmt  = "tvlineup:programs:%d"
	patternChannel  = "tvlineup:channel:*"
	patternPrograms = "tvlineup:programs:*"
)

// CachedStore wraps a Store with a Redis caching layer.
// Catalog reads are served from cache when possible; writes invalidate the
// affected keys. Writes made inside WithTx invalidate after commit.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	if v, err := cache.Get[[]models.Channel](ctx, c.cache, keyChannels); err == nil {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyChannels, channels, ttlChannels)
	return channels, nil
}

func (c *CachedStore) GetChannel(ctx context.Context, rowID int64) (*models.Channel, error) {
	key := fmt.Sprintf(keyChannelFmt, rowID)
	if v, err := cache.Get[models.Channel](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	ch, err := c.inner.GetChannel(ctx, rowID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, ch, ttlChannel)
	return ch, nil
}

func (c *CachedStore) ListPrograms(ctx context.Context, channelID int64) ([]models.Program, error) {
	key := fmt.Sprintf(keyProgramsFmt, channelID)
	if v, err := cache.Get[[]models.Program](ctx, c.cache, key); err == nil {
		return v, nil
	}
	programs, err := c.inner.ListPrograms(ctx, channelID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, programs, ttlPrograms)
	return programs, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) InsertChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	id, err := c.inner.InsertChannel(ctx, ch)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, keyChannels)
	return id, nil
}

func (c *CachedStore) UpdateChannel(ctx context.Context, rowID int64, ch *models.Channel) (int64, error) {
	n, err := c.inner.UpdateChannel(ctx, rowID, ch)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, keyChannels, fmt.Sprintf(keyChannelFmt, rowID))
	return n, nil
}

func (c *CachedStore) DeleteChannel(ctx context.Context, rowID int64) (int64, error) {
	n, err := c.inner.DeleteChannel(ctx, rowID)
	if err != nil {
		return 0, err
	}
	c.invalidate(ctx, keyChannels, fmt.Sprintf(keyChannelFmt, rowID), fmt.Sprintf(keyProgramsFmt, rowID))
	return n, nil
}

func (c *CachedStore) ReplacePrograms(ctx context.Context, channelID int64, programs []models.Program) error {
	if err := c.inner.ReplacePrograms(ctx, channelID, programs); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf(keyProgramsFmt, channelID))
	return nil
}

// WithTx runs fn against the inner store's transaction and drops every
// catalog key once it commits.
func (c *CachedStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if err := c.inner.WithTx(ctx, fn); err != nil {
		return err
	}
	c.invalidate(ctx, keyChannels)
	c.invalidatePattern(ctx, patternChannel, patternPrograms)
	return nil
}

// --- passthrough (no caching) ---

func (c *CachedStore) ChannelKeys(ctx context.Context, inputID string) ([]models.ChannelKey, error) {
	return c.inner.ChannelKeys(ctx, inputID)
}

func (c *CachedStore) PutChannelLogo(ctx context.Context, channelID int64, content []byte, contentType string) error {
	return c.inner.PutChannelLogo(ctx, channelID, content, contentType)
}

func (c *CachedStore) GetChannelLogo(ctx context.Context, channelID int64) ([]byte, string, error) {
	return c.inner.GetChannelLogo(ctx, channelID)
}

// --- helpers ---

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("cache set")
	}
}

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && !errors.Is(err, redis.Nil) {
		logging.FromContext(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache del")
	}
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("pattern", p).Msg("cache del pattern")
		}
	}
}
