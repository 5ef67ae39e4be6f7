package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/infrastructure/config"
	"documentiulia/interfaces/http/rest/handlers"
	"documentiulia/interfaces/http/rest/middleware"
	"documentiulia/pkg/auth"
	"documentiulia/pkg/common"
)

// Route declares one business endpoint together with its caching metadata.
// Read endpoints carry a CachePolicy; mutating endpoints carry the tag
// templates to invalidate once the handler succeeds.
type Route struct {
	Method         string
	Pattern        string
	Handler        http.HandlerFunc
	Cache          *middleware.CachePolicy
	InvalidateTags []string
}

// Router creates and configures the HTTP router
type Router struct {
	cfg       *config.Config
	store     *cache.Store
	validator *auth.JWTValidator
	logger    *zap.Logger
	routes    []Route
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	store *cache.Store,
	validator *auth.JWTValidator,
	logger *zap.Logger,
	routes ...Route,
) *Router {
	return &Router{
		cfg:       cfg,
		store:     store,
		validator: validator,
		logger:    logger,
		routes:    routes,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*.documentiulia.ro", "http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Cache", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health checks
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))
		r.Use(middleware.RateLimit(rt.store, rt.cfg.RateLimitMax, rt.cfg.RateLimitWindow))

		// Cache admin surface (off the hot path)
		r.Route("/admin/cache", func(r chi.Router) {
			adminHandler := handlers.NewCacheAdminHandler(rt.store, rt.logger)
			r.Get("/stats", adminHandler.GetStats)
			r.Get("/metrics", adminHandler.GetMetrics)
			r.Post("/stats/reset", adminHandler.ResetStats)
			r.Get("/keys", adminHandler.ListKeys)
			r.Get("/key", adminHandler.GetKey)
			r.Delete("/key", adminHandler.DeleteKey)
			r.Delete("/keys", adminHandler.DeletePattern)
			r.Post("/invalidate/tags", adminHandler.InvalidateTags)
			r.Post("/invalidate/{scope}/{userID}", adminHandler.InvalidateScope)
			r.Post("/warm", adminHandler.WarmCache)
			r.Post("/flush", adminHandler.FlushDB)
			r.Post("/flush-all", adminHandler.FlushAll)
		})

		// Business endpoints registered with their caching metadata
		for _, route := range rt.routes {
			rt.mount(r, route)
		}
	})

	return router
}

// mount wires one declared route with its cache or invalidation middleware.
func (rt *Router) mount(r chi.Router, route Route) {
	handler := http.Handler(route.Handler)

	if route.Cache != nil {
		handler = middleware.CacheResponse(rt.store, rt.logger, *route.Cache)(handler)
	}
	if len(route.InvalidateTags) > 0 {
		handler = middleware.InvalidateTags(rt.store, rt.logger, route.InvalidateTags)(handler)
	}

	r.Method(route.Method, route.Pattern, handler)
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readinessCheck reports degraded (but still 200) when the cache backend is
// down: the API keeps serving uncached responses in that state.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if !rt.store.Connected() {
		status = "degraded"
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"cache_connected": rt.store.Connected(),
	})
}
