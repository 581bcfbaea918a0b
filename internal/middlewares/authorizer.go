package middlewares

import (
	"net/http"

	h "figures/internal/helpers"
	"figures/internal/models"
)

var roleRank = map[models.Role]int{
	models.RoleStaff: 1,
	models.RoleAdmin: 2,
}

// AuthorizeRole checks if the authenticated caller has at least the required role.
func AuthorizeRole(requiredRole models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				h.RespondWithError(w, 401, []string{"UNAUTHORIZED"})
				return
			}

			if roleRank[userClaims.Role] < roleRank[requiredRole] {
				h.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeDefaultSite only lets admins through on the default site. Cross
// site listings are not visible from tenant sites.
func AuthorizeDefaultSite(defaultSiteID uint) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				h.RespondWithError(w, 401, []string{"UNAUTHORIZED"})
				return
			}

			site, ok := r.Context().Value(models.SiteKey{}).(models.Site)
			if !ok || site.ID != defaultSiteID || !userClaims.IsAdmin() {
				h.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
