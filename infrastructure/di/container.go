package di

import (
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/infrastructure/config"
	"documentiulia/infrastructure/redis"
	"documentiulia/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	RedisClient  *redis.Client
	Backend      cache.Backend
	Stats        *cache.Stats
	Store        *cache.Store
	Loader       *cache.Loader
	JWTValidator *auth.JWTValidator
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if err := c.RedisClient.Close(); err != nil {
		c.Logger.Warn("redis close failed", zap.Error(err))
	}
	return c.Logger.Sync()
}
