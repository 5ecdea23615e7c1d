package catalog

import (
	"context"
	"errors"
	"time"

	"VoidFM/logger"
	"VoidFM/model"
)

// Store is the JSON key/value cache the Cached decorator writes through.
type Store interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const cachePrefix = "catalog:"

// Cached memoizes a Provider in a Store. Cache errors are logged and the
// inner provider is used directly.
type Cached struct {
	inner Provider
	store Store
	ttl   time.Duration
}

// NewCached wraps inner. ttl <= 0 defaults to five minutes.
func NewCached(inner Provider, store Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{inner: inner, store: store, ttl: ttl}
}

func cached[T any](ctx context.Context, c *Cached, key string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	hit, err := c.store.GetJSON(ctx, cachePrefix+key, &v)
	if err != nil {
		logger.Warn("Catalog cache read failed", logger.String("key", key), logger.ErrorField(err))
	} else if hit {
		return v, nil
	}

	v, err = fetch(ctx)
	if err != nil {
		return v, err
	}
	if err := c.store.SetJSON(ctx, cachePrefix+key, v, c.ttl); err != nil {
		logger.Warn("Catalog cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
	return v, nil
}

func (c *Cached) Rituals(ctx context.Context) ([]model.Ritual, error) {
	return cached(ctx, c, "rituals", c.inner.Rituals)
}

func (c *Cached) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	return cached(ctx, c, "ritual:"+slug, func(ctx context.Context) (*model.Ritual, error) {
		return c.inner.RitualBySlug(ctx, slug)
	})
}

func (c *Cached) LoreNodes(ctx context.Context) ([]model.LoreNode, error) {
	return cached(ctx, c, "lore", c.inner.LoreNodes)
}

func (c *Cached) SiteSettings(ctx context.Context) (*model.SiteSettings, error) {
	return cached(ctx, c, "settings", c.inner.SiteSettings)
}

func (c *Cached) Page(ctx context.Context, pageID string) (*model.PageContent, error) {
	return cached(ctx, c, "page:"+pageID, func(ctx context.Context) (*model.PageContent, error) {
		return c.inner.Page(ctx, pageID)
	})
}

// Invalidate drops the list entries; per-slug and per-page entries age out.
func (c *Cached) Invalidate(ctx context.Context) error {
	err := c.store.Delete(ctx, cachePrefix+"rituals", cachePrefix+"lore", cachePrefix+"settings")
	if err != nil {
		return errors.Join(errors.New("catalog cache invalidate"), err)
	}
	return nil
}
