// Package cache holds the redis-backed API-key lookup cache. Every
// public SDK call resolves its path API key to a project; caching that
// lookup keeps the hot path off postgres.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkatta/pushgate/pkg/models"
)

const apiKeyTTL = 10 * time.Minute

type ProjectCache struct {
	rdb *redis.Client
}

func NewProjectCache(rdb *redis.Client) *ProjectCache {
	return &ProjectCache{rdb: rdb}
}

func cacheKey(apiKey string) string {
	return "pushgate:apikey:" + apiKey
}

func (c *ProjectCache) Get(ctx context.Context, apiKey string) (*models.Project, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(apiKey)).Result()
	if err != nil {
		return nil, false
	}
	var project models.Project
	if err := json.Unmarshal([]byte(raw), &project); err != nil {
		return nil, false
	}
	return &project, true
}

func (c *ProjectCache) Set(ctx context.Context, apiKey string, project *models.Project) {
	raw, err := json.Marshal(project)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey(apiKey), raw, apiKeyTTL)
}

// Invalidate drops a key from the cache. Called on API-key
// regeneration and project updates so a revoked key stops authorizing
// immediately instead of living out its TTL.
func (c *ProjectCache) Invalidate(ctx context.Context, apiKey string) {
	c.rdb.Del(ctx, cacheKey(apiKey))
}
