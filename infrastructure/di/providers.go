package di

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"documentiulia/infrastructure/cache"
	"documentiulia/infrastructure/config"
	"documentiulia/infrastructure/redis"
	"documentiulia/pkg/auth"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideRedisClient creates the Redis client. Connection is established
// later via Connect so a down Redis never blocks startup.
func ProvideRedisClient(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	return redis.NewClient(redis.Options{
		URL:            cfg.RedisURL,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		CommandTimeout: cfg.RedisCommandTimeout,
		MaxReconnects:  cfg.RedisMaxReconnects,
		ReconnectDelay: cfg.RedisReconnectDelay,
		Logger:         logger,
	})
}

// ProvideBackend exposes the Redis client as the cache backend.
func ProvideBackend(client *redis.Client) cache.Backend {
	return client
}

// ProvideStats creates the hit/miss recorder.
func ProvideStats() *cache.Stats {
	return cache.NewStats()
}

// ProvideStore creates the typed cache store.
func ProvideStore(backend cache.Backend, stats *cache.Stats, cfg *config.Config, logger *zap.Logger) *cache.Store {
	return cache.NewStore(backend, cache.StoreOptions{
		DefaultTTL: cfg.CacheDefaultTTL,
		TagGrace:   cfg.CacheTagGrace,
		Logger:     logger,
		Stats:      stats,
	})
}

// ProvideLoader creates the cache loader. Coalescing is opt-in via config.
func ProvideLoader(store *cache.Store, cfg *config.Config) *cache.Loader {
	return cache.NewLoader(store, cfg.CacheCoalesce)
}

// ProvideJWTValidator creates the token validator for the API surface.
// Outside production a missing JWT_SECRET falls back to a random per-process
// secret so the default configuration still boots; issued tokens then do not
// survive a restart.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using a random per-process secret")
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}
