package core

import (
	c "figures/internal/cache"
	"figures/internal/models"

	"go.uber.org/zap"
)

// NewCache returns nil when no cache is configured. Rate limiting, response
// caching and singleton worker locks are then disabled.
func NewCache(config *models.CacheConfiguration) c.ICache {
	if config == nil {
		return nil
	}

	var cache *c.RueidisCache
	var err error

	switch config.Type {
	case "redis":
		cache, err = c.NewRedisCache(config.Redis)
	case "valkey":
		cache, err = c.NewValkeyCache(config.Valkey)
	default:
		return nil
	}

	if err != nil {
		zap.L().Fatal("Failed to connect to cache", zap.String("type", config.Type), zap.Error(err))
	}
	return cache
}
