package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"documentiulia/pkg/auth"
	"documentiulia/pkg/common"
	apperrors "documentiulia/pkg/errors"
)

// Authenticate returns a middleware validating the bearer token and placing
// the caller identity into the request context. That identity is what
// user-scoped cache keys and {userId} tag placeholders resolve against.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				respondUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			if claims.TenantID != "" {
				ctx = common.WithTenantID(ctx, claims.TenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	common.RespondAppError(w, apperrors.NewUnauthorizedError(message))
}
