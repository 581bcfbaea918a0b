package middlewares

import (
	"net/http"
	"slices"

	"figures/internal/configuration"
	"figures/internal/helpers"
	"figures/internal/models"
)

// AudienceValidate checks that the token audience is accepted on the route.
// Routes without an audience rule only accept full access tokens. It runs
// after Authenticate.
func AudienceValidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if excluded, _ := r.Context().Value(AuthExcludedKey{}).(bool); excluded {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
		if !ok {
			helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
			return
		}

		allowedAudiences := getRouteAllowedAudiences(r.URL.Path, r.Method)

		if allowedAudiences != nil {
			if !slices.Contains(allowedAudiences, claims.Aud) {
				helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}
		} else if claims.Aud != configuration.AudienceAccessToken {
			helpers.RespondWithError(w, 403, []string{"FORBIDDEN"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getRouteAllowedAudiences(path, method string) []string {
	for _, rule := range configuration.AuthAudienceRules {
		if rule.Method != "*" && rule.Method != method {
			continue
		}

		if (rule.ExactPath != "" && rule.ExactPath == path) || (rule.Pattern != nil && rule.Pattern.MatchString(path)) {
			return rule.AllowedAudiences
		}
	}
	return nil
}
