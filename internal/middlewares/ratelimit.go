package middlewares

import (
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"figures/internal/cache"
	h "figures/internal/helpers"
	"figures/internal/models"

	"go.uber.org/zap"
)

// RateLimit throttles callers per minute, keyed on the operator when
// authenticated and on the client address otherwise. Disabled without a cache.
func RateLimit(c cache.ICache, trustedProxies []string, requestsPerMinute int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := clientIP(r, trustedProxies)
			if claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims); ok {
				identifier = claims.Email
			}

			retryAfter, err := c.GetRateLimit(identifier, requestsPerMinute)
			if err != nil {
				zap.L().Error("Rate limit lookup failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				h.RespondWithError(w, 429, []string{"TOO_MANY_REQUESTS"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP honours X-Forwarded-For only when the direct peer is a trusted proxy.
func clientIP(r *http.Request, trustedProxies []string) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}

	if !slices.Contains(trustedProxies, remote) {
		return remote
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return remote
	}
	return strings.TrimSpace(strings.Split(forwarded, ",")[0])
}
