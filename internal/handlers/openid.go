package handlers

import (
	"context"
	"net/http"

	"figures/internal/configuration"
	apierrors "figures/internal/errors"
	h "figures/internal/helpers"
	m "figures/internal/middlewares"
	"figures/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OpenIDBeginFunc func(providerKey string, state string, nonce string) (string, error)

type OpenIDCallbackFunc func(
	ctx context.Context, logger *zap.Logger, providerKey string, code string, nonce string,
) (models.AuthLoginResponse, error)

// OpenIDBeginHandler stores a fresh state and nonce in short lived cookies and
// redirects the browser to the provider's authorization endpoint.
func OpenIDBeginHandler(fn OpenIDBeginFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := m.GetLogger(r.Context())

		state, err := h.GenerateState()
		if err != nil {
			handleError(w, logger, err)
			return
		}
		nonce, err := h.GenerateState()
		if err != nil {
			handleError(w, logger, err)
			return
		}

		redirectURL, err := fn(chi.URLParam(r, "provider"), state, nonce)
		if err != nil {
			handleError(w, logger, err)
			return
		}

		secure := requestURL(r).Scheme == "https"
		setOpenIDCookie(w, configuration.OIDCStateCookie, state, configuration.OIDCCookieTTL, secure)
		setOpenIDCookie(w, configuration.OIDCNonceCookie, nonce, configuration.OIDCCookieTTL, secure)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// OpenIDCallbackHandler checks the returned state against the cookie set by
// OpenIDBeginHandler before handing the authorization code to fn.
func OpenIDCallbackHandler(fn OpenIDCallbackFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := m.GetLogger(r.Context())
		query := r.URL.Query()

		state, err := r.Cookie(configuration.OIDCStateCookie)
		if err != nil || state.Value == "" || state.Value != query.Get("state") {
			logger.Debug("OIDC state mismatch")
			h.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrInvalidState})
			return
		}
		nonce, err := r.Cookie(configuration.OIDCNonceCookie)
		if err != nil || nonce.Value == "" || query.Get("code") == "" {
			h.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
			return
		}

		secure := requestURL(r).Scheme == "https"
		setOpenIDCookie(w, configuration.OIDCStateCookie, "", -1, secure)
		setOpenIDCookie(w, configuration.OIDCNonceCookie, "", -1, secure)

		response, err := fn(r.Context(), logger, chi.URLParam(r, "provider"), query.Get("code"), nonce.Value)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, response)
	}
}

func setOpenIDCookie(w http.ResponseWriter, name string, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/figures/api/auth/oidc",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
