package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"VoidFM/core/player"

	"github.com/go-redis/redis/v8"
)

const (
	resumeKey = keyPrefix + "player:resume" // Hash: slug, time, updatedAt
	resumeTTL = 30 * 24 * time.Hour
)

// ResumeCache persists the player's resume point in a redis hash.
type ResumeCache struct {
	client *redis.Client
}

// NewResumeCache 创建播放进度缓存
func NewResumeCache() *ResumeCache {
	return &ResumeCache{client: RedisClient}
}

// SavePosition 保存播放进度
func (c *ResumeCache) SavePosition(ctx context.Context, pos player.Position) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, resumeKey, map[string]interface{}{
		"slug":      pos.Slug,
		"time":      strconv.FormatFloat(pos.Time, 'f', 3, 64),
		"updatedAt": time.Now().Unix(),
	})
	pipe.Expire(ctx, resumeKey, resumeTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save resume point: %w", err)
	}
	return nil
}

// LoadPosition 读取播放进度，不存在时返回 nil
func (c *ResumeCache) LoadPosition(ctx context.Context) (*player.Position, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}
	fields, err := c.client.HGetAll(ctx, resumeKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load resume point: %w", err)
	}
	slug := fields["slug"]
	if slug == "" {
		return nil, nil
	}
	t, err := strconv.ParseFloat(fields["time"], 64)
	if err != nil {
		t = 0
	}
	return &player.Position{Slug: slug, Time: t}, nil
}
