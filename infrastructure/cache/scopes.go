package cache

import (
	"context"
	"encoding/json"
)

// Scoped helpers compose domain prefixes with a user identity so entire
// per-user slices of the keyspace can be invalidated through one tag.

// UserKey builds a user-scoped cache key.
func UserKey(userID, key string) string {
	return PrefixUser + userID + ":" + key
}

// GetUserCache returns a user-scoped entry.
func (s *Store) GetUserCache(ctx context.Context, userID, key string) (json.RawMessage, bool) {
	return s.Get(ctx, UserKey(userID, key))
}

// SetUserCache stores a user-scoped entry tagged with the user tag.
func (s *Store) SetUserCache(ctx context.Context, userID, key string, value interface{}, opts Options) bool {
	opts.Tags = append(opts.Tags, UserTag(userID))
	return s.Set(ctx, UserKey(userID, key), value, opts)
}

// InvalidateUserCache drops every entry tagged for userID.
func (s *Store) InvalidateUserCache(ctx context.Context, userID string) int {
	return s.InvalidateTag(ctx, UserTag(userID))
}

// GetFleetCache returns a fleet-scoped entry.
func (s *Store) GetFleetCache(ctx context.Context, userID, key string) (json.RawMessage, bool) {
	return s.Get(ctx, PrefixFleet+userID+":"+key)
}

// SetFleetCache stores a fleet-scoped entry tagged with the fleet tag.
func (s *Store) SetFleetCache(ctx context.Context, userID, key string, value interface{}, opts Options) bool {
	opts.Tags = append(opts.Tags, FleetTag(userID))
	return s.Set(ctx, PrefixFleet+userID+":"+key, value, opts)
}

// InvalidateFleetCache drops every fleet entry for userID.
func (s *Store) InvalidateFleetCache(ctx context.Context, userID string) int {
	return s.InvalidateTag(ctx, FleetTag(userID))
}

// GetAnalyticsCache returns a cached analytics report.
func (s *Store) GetAnalyticsCache(ctx context.Context, userID, reportType string) (json.RawMessage, bool) {
	return s.Get(ctx, PrefixAnalytics+userID+":"+reportType)
}

// SetAnalyticsCache stores an analytics report tagged with the analytics tag.
func (s *Store) SetAnalyticsCache(ctx context.Context, userID, reportType string, value interface{}, opts Options) bool {
	opts.Tags = append(opts.Tags, AnalyticsTag(userID))
	return s.Set(ctx, PrefixAnalytics+userID+":"+reportType, value, opts)
}

// InvalidateAnalyticsCache drops every analytics entry for userID.
func (s *Store) InvalidateAnalyticsCache(ctx context.Context, userID string) int {
	return s.InvalidateTag(ctx, AnalyticsTag(userID))
}

// GetDashboardCache returns a cached dashboard widget.
func (s *Store) GetDashboardCache(ctx context.Context, userID, widgetID string) (json.RawMessage, bool) {
	return s.Get(ctx, PrefixDashboard+userID+":"+widgetID)
}

// SetDashboardCache stores a dashboard widget tagged with the dashboard tag.
func (s *Store) SetDashboardCache(ctx context.Context, userID, widgetID string, value interface{}, opts Options) bool {
	opts.Tags = append(opts.Tags, DashboardTag(userID))
	return s.Set(ctx, PrefixDashboard+userID+":"+widgetID, value, opts)
}

// InvalidateDashboardCache drops every dashboard entry for userID.
func (s *Store) InvalidateDashboardCache(ctx context.Context, userID string) int {
	return s.InvalidateTag(ctx, DashboardTag(userID))
}

// UserTag is the invalidation tag grouping all entries of one user.
func UserTag(userID string) string {
	return "user:" + userID
}

// FleetTag is the invalidation tag grouping a user's fleet entries.
func FleetTag(userID string) string {
	return "fleet:" + userID
}

// AnalyticsTag is the invalidation tag grouping a user's analytics entries.
func AnalyticsTag(userID string) string {
	return "analytics:" + userID
}

// DashboardTag is the invalidation tag grouping a user's dashboard entries.
func DashboardTag(userID string) string {
	return "dashboard:" + userID
}
