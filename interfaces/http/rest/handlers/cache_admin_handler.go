package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/pkg/common"
	apperrors "documentiulia/pkg/errors"
	"documentiulia/pkg/utils"
)

// CacheAdminHandler exposes the operator surface of the caching layer:
// statistics, key introspection, targeted invalidation and flushes. None of
// these endpoints are on the hot path.
type CacheAdminHandler struct {
	store  *cache.Store
	logger *zap.Logger
}

// NewCacheAdminHandler creates a new cache admin handler
func NewCacheAdminHandler(store *cache.Store, logger *zap.Logger) *CacheAdminHandler {
	return &CacheAdminHandler{
		store:  store,
		logger: logger,
	}
}

// GetStats returns hit/miss counters and keyspace introspection.
func (h *CacheAdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.Snapshot(r.Context()))
}

// GetMetrics returns detailed backend metrics.
func (h *CacheAdminHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.Metrics(r.Context()))
}

// ResetStats zeroes the hit/miss counters.
func (h *CacheAdminHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.store.Stats().Reset()
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// ListKeys enumerates keys matching the pattern query parameter.
func (h *CacheAdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	keys := h.store.Keys(r.Context(), pattern)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"pattern": pattern,
		"count":   len(keys),
		"keys":    keys,
	})
}

// GetKey returns the full entry stored under the key query parameter.
func (h *CacheAdminHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		common.RespondAppError(w, apperrors.NewValidationError("key query parameter is required"))
		return
	}
	entry, ok := h.store.GetEntry(r.Context(), key)
	if !ok {
		common.RespondAppError(w, apperrors.NewNotFoundError("cache key"))
		return
	}
	common.RespondJSON(w, http.StatusOK, entry)
}

// DeleteKey removes the entry under the key query parameter.
func (h *CacheAdminHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		common.RespondAppError(w, apperrors.NewValidationError("key query parameter is required"))
		return
	}
	deleted := h.store.Delete(r.Context(), key)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"key":     key,
		"deleted": deleted,
	})
}

// DeletePattern removes every entry matching the pattern query parameter.
func (h *CacheAdminHandler) DeletePattern(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		common.RespondAppError(w, apperrors.NewValidationError("pattern query parameter is required"))
		return
	}
	count := h.store.DeletePattern(r.Context(), pattern)
	h.logger.Info("admin pattern delete",
		zap.String("pattern", pattern),
		zap.Int("deleted", count),
	)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"pattern": pattern,
		"deleted": count,
	})
}

type invalidateTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

// InvalidateTags drops every entry registered under the submitted tags.
func (h *CacheAdminHandler) InvalidateTags(w http.ResponseWriter, r *http.Request) {
	var req invalidateTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}
	count := h.store.InvalidateTags(r.Context(), req.Tags)
	h.logger.Info("admin tag invalidation",
		zap.Strings("tags", req.Tags),
		zap.Int("invalidated", count),
	)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"tags":        req.Tags,
		"invalidated": count,
	})
}

// InvalidateScope drops every entry of one domain scope for one user, e.g.
// POST /invalidate/fleet/{userID}.
func (h *CacheAdminHandler) InvalidateScope(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	userID := chi.URLParam(r, "userID")

	var count int
	switch scope {
	case "user":
		count = h.store.InvalidateUserCache(r.Context(), userID)
	case "fleet":
		count = h.store.InvalidateFleetCache(r.Context(), userID)
	case "analytics":
		count = h.store.InvalidateAnalyticsCache(r.Context(), userID)
	case "dashboard":
		count = h.store.InvalidateDashboardCache(r.Context(), userID)
	default:
		common.RespondAppError(w, apperrors.NewValidationError("scope must be one of user, fleet, analytics, dashboard"))
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"scope":       scope,
		"user_id":     userID,
		"invalidated": count,
	})
}

type warmCacheEntry struct {
	Key   string          `json:"key" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
	TTL   int64           `json:"ttl,omitempty" validate:"min=0"`
	Tags  []string        `json:"tags,omitempty"`
}

type warmCacheRequest struct {
	Entries []warmCacheEntry `json:"entries" validate:"required,min=1,dive"`
}

// WarmCache pre-populates the cache with the submitted entries.
func (h *CacheAdminHandler) WarmCache(w http.ResponseWriter, r *http.Request) {
	var req warmCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	entries := make([]cache.BatchEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, cache.BatchEntry{
			Key:   e.Key,
			Value: e.Value,
			Opts: cache.Options{
				TTL:  time.Duration(e.TTL) * time.Second,
				Tags: e.Tags,
			},
		})
	}

	warmed := h.store.WarmCache(r.Context(), entries)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"warmed":    warmed,
		"requested": len(entries),
	})
}

// FlushDB clears the current cache keyspace.
func (h *CacheAdminHandler) FlushDB(w http.ResponseWriter, r *http.Request) {
	h.respondFlush(w, r, "db", h.store.FlushDB(r.Context()))
}

// FlushAll clears every keyspace on the backend.
func (h *CacheAdminHandler) FlushAll(w http.ResponseWriter, r *http.Request) {
	h.respondFlush(w, r, "all", h.store.FlushAll(r.Context()))
}

// respondFlush logs destructive flushes under an operation id so the audit
// trail can correlate them with operator actions.
func (h *CacheAdminHandler) respondFlush(w http.ResponseWriter, r *http.Request, scope string, flushed bool) {
	operationID := uuid.New().String()
	userID, _ := common.GetUserID(r.Context())
	h.logger.Warn("admin cache flush",
		zap.String("operation_id", operationID),
		zap.String("scope", scope),
		zap.String("user_id", userID),
		zap.Bool("flushed", flushed),
	)

	status := http.StatusOK
	if !flushed {
		status = http.StatusServiceUnavailable
	}
	common.RespondJSON(w, status, map[string]interface{}{
		"operation_id": operationID,
		"scope":        scope,
		"flushed":      flushed,
	})
}
