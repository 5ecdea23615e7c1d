// Package catalog supplies rituals, lore and page content to the player and
// the HTTP shell. Every provider is read-only.
package catalog

import (
	"context"
	"errors"
	"strings"

	"VoidFM/logger"
	"VoidFM/model"
)

var (
	// ErrNotConfigured means the backing store has no credentials/location.
	ErrNotConfigured = errors.New("catalog: provider not configured")
	// ErrNotFound is returned by single-document lookups.
	ErrNotFound = errors.New("catalog: not found")
)

// RitualSource lists rituals ordered by release date, newest first.
type RitualSource interface {
	Rituals(ctx context.Context) ([]model.Ritual, error)
}

// Provider is the full content contract.
type Provider interface {
	RitualSource
	RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error)
	LoreNodes(ctx context.Context) ([]model.LoreNode, error)
	SiteSettings(ctx context.Context) (*model.SiteSettings, error)
	Page(ctx context.Context, pageID string) (*model.PageContent, error)
}

// SafeFetch runs fetch and returns fallback when the provider is not
// configured or the fetch fails. Failures are logged, never returned.
func SafeFetch[T any](ctx context.Context, what string, fetch func(context.Context) (T, error), fallback T) T {
	v, err := fetch(ctx)
	if err == nil {
		return v
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		logger.Debug("Catalog not configured, using fallback", logger.String("query", what))
	case errors.Is(err, ErrNotFound):
	default:
		logger.Warn("Catalog fetch failed, using fallback", logger.String("query", what), logger.ErrorField(err))
	}
	return fallback
}

// Empty is the provider used when nothing is configured.
type Empty struct{}

func (Empty) Rituals(context.Context) ([]model.Ritual, error) { return nil, ErrNotConfigured }
func (Empty) RitualBySlug(context.Context, string) (*model.Ritual, error) {
	return nil, ErrNotConfigured
}
func (Empty) LoreNodes(context.Context) ([]model.LoreNode, error) { return nil, ErrNotConfigured }
func (Empty) SiteSettings(context.Context) (*model.SiteSettings, error) {
	return nil, ErrNotConfigured
}
func (Empty) Page(context.Context, string) (*model.PageContent, error) {
	return nil, ErrNotConfigured
}

// Fallback asks Primary first and Secondary when Primary fails for any
// reason other than a definite not-found.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f Fallback) Rituals(ctx context.Context) ([]model.Ritual, error) {
	v, err := f.Primary.Rituals(ctx)
	if err == nil {
		return v, nil
	}
	f.logFallback("rituals", err)
	return f.Secondary.Rituals(ctx)
}

func (f Fallback) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	v, err := f.Primary.RitualBySlug(ctx, slug)
	if err == nil || errors.Is(err, ErrNotFound) {
		return v, err
	}
	f.logFallback("ritualBySlug", err)
	return f.Secondary.RitualBySlug(ctx, slug)
}

func (f Fallback) LoreNodes(ctx context.Context) ([]model.LoreNode, error) {
	v, err := f.Primary.LoreNodes(ctx)
	if err == nil {
		return v, nil
	}
	f.logFallback("lore", err)
	return f.Secondary.LoreNodes(ctx)
}

func (f Fallback) SiteSettings(ctx context.Context) (*model.SiteSettings, error) {
	v, err := f.Primary.SiteSettings(ctx)
	if err == nil || errors.Is(err, ErrNotFound) {
		return v, err
	}
	f.logFallback("siteSettings", err)
	return f.Secondary.SiteSettings(ctx)
}

func (f Fallback) Page(ctx context.Context, pageID string) (*model.PageContent, error) {
	v, err := f.Primary.Page(ctx, pageID)
	if err == nil || errors.Is(err, ErrNotFound) {
		return v, err
	}
	f.logFallback("page", err)
	return f.Secondary.Page(ctx, pageID)
}

func (f Fallback) logFallback(query string, err error) {
	if errors.Is(err, ErrNotConfigured) {
		return
	}
	logger.Warn("Primary catalog failed, trying fallback", logger.String("query", query), logger.ErrorField(err))
}

// RitualsOnly adapts a RitualSource (e.g. the database mirror) into a
// Provider; everything but rituals reports ErrNotConfigured.
type RitualsOnly struct {
	Source RitualSource
}

func (r RitualsOnly) Rituals(ctx context.Context) ([]model.Ritual, error) {
	return r.Source.Rituals(ctx)
}

func (r RitualsOnly) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	list, err := r.Source.Rituals(ctx)
	if err != nil {
		return nil, err
	}
	return findSlug(list, slug)
}

func (RitualsOnly) LoreNodes(context.Context) ([]model.LoreNode, error) { return nil, ErrNotConfigured }
func (RitualsOnly) SiteSettings(context.Context) (*model.SiteSettings, error) {
	return nil, ErrNotConfigured
}
func (RitualsOnly) Page(context.Context, string) (*model.PageContent, error) {
	return nil, ErrNotConfigured
}

func findSlug(list []model.Ritual, slug string) (*model.Ritual, error) {
	slug = strings.TrimSpace(slug)
	for i := range list {
		if list[i].Slug == slug {
			r := list[i]
			return &r, nil
		}
	}
	return nil, ErrNotFound
}
