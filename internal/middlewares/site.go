package middlewares

import (
	"context"
	"net/http"

	h "figures/internal/helpers"
	"figures/internal/models"

	"go.uber.org/zap"
)

type SiteResolver interface {
	CurrentSite(ctx context.Context, host string) (models.Site, error)
}

// CurrentSite resolves the site serving the request from its host.
func CurrentSite(resolver SiteResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site, err := resolver.CurrentSite(r.Context(), r.Host)
			if err != nil {
				zap.L().Error("Failed to resolve site", zap.String("host", r.Host), zap.Error(err))
				h.RespondWithError(w, 404, []string{"SITE_NOT_FOUND"})
				return
			}

			ctx := context.WithValue(r.Context(), models.SiteKey{}, site)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
