package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/pkg/common"
)

// InvalidateTags returns a middleware that invalidates the given tag
// templates after a mutation succeeds. Templates may contain placeholders
// like {userId} or {id}, resolved from the caller identity and the route
// parameters. Invalidation completes before the response is released, so a
// caller that observes success is guaranteed not to read stale data for
// those tags afterwards.
//
// Failed mutations invalidate nothing: the cache still correctly reflects
// the unchanged prior state.
func InvalidateTags(store *cache.Store, logger *zap.Logger, templates []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(templates) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			capture := newResponseCapture()
			next.ServeHTTP(capture, r)

			if capture.status < 400 {
				tags := make([]string, 0, len(templates))
				for _, template := range templates {
					tag := ResolveTagTemplate(r, template)
					if strings.Contains(tag, "{") {
						// Unresolved placeholders stay literal; flag the
						// template so misconfigured routes are visible.
						logger.Warn("tag template left unresolved",
							zap.String("template", template),
							zap.String("tag", tag),
							zap.String("path", r.URL.Path),
						)
					}
					tags = append(tags, tag)
				}
				count := store.InvalidateTags(r.Context(), tags)
				logger.Debug("invalidated tags after mutation",
					zap.Strings("tags", tags),
					zap.Int("keys", count),
					zap.String("path", r.URL.Path),
				)
			}

			capture.flush(w)
		})
	}
}

// ResolveTagTemplate substitutes template placeholders from the request:
// {userId} resolves to the authenticated caller, every other {name}
// resolves to the matching route parameter. Placeholders without a value
// are left as literal text.
func ResolveTagTemplate(r *http.Request, template string) string {
	tag := template

	if strings.Contains(tag, "{userId}") {
		if userID, ok := common.GetUserID(r.Context()); ok && userID != "" {
			tag = strings.ReplaceAll(tag, "{userId}", userID)
		}
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, name := range rctx.URLParams.Keys {
			placeholder := "{" + name + "}"
			if value := rctx.URLParams.Values[i]; value != "" {
				tag = strings.ReplaceAll(tag, placeholder, value)
			}
		}
	}

	return tag
}
