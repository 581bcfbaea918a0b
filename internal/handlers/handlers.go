package handlers

import (
	"errors"
	"net/http"
	"net/url"

	apierrors "figures/internal/errors"
	h "figures/internal/helpers"
	m "figures/internal/middlewares"
	"figures/internal/models"

	"go.uber.org/zap"
)

type GetListFunc[Q any, R any] func(*zap.Logger, models.RequestScope, []string, Q) (models.Page[R], error)

type GetOneFunc[R any] func(*zap.Logger, models.RequestScope, []string) (R, error)

type GetOneWithQueryFunc[Q any, R any] func(*zap.Logger, models.RequestScope, []string, Q) (R, error)

type BodyFunc[B any, R any] func(*zap.Logger, models.RequestScope, []string, B) (R, error)

func GetListHandler[Q any, R any](fn GetListFunc[Q, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, scope, ids, ok := prepare(w, r)
		if !ok {
			return
		}

		query, _ := r.Context().Value(m.QueryKey{}).(Q)
		page, err := fn(logger, scope, ids, query)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, page)
	}
}

func GetOneHandler[R any](fn GetOneFunc[R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, scope, ids, ok := prepare(w, r)
		if !ok {
			return
		}

		record, err := fn(logger, scope, ids)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, record)
	}
}

func GetOneWithQueryHandler[Q any, R any](fn GetOneWithQueryFunc[Q, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, scope, ids, ok := prepare(w, r)
		if !ok {
			return
		}

		query, _ := r.Context().Value(m.QueryKey{}).(Q)
		record, err := fn(logger, scope, ids, query)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, record)
	}
}

// BodyHandler answers 200 with the result of fn applied to the validated body.
func BodyHandler[B any, R any](fn BodyFunc[B, R]) http.HandlerFunc {
	return bodyHandler(http.StatusOK, fn)
}

// AcceptHandler answers 202 for requests that only enqueue work.
func AcceptHandler[B any, R any](fn BodyFunc[B, R]) http.HandlerFunc {
	return bodyHandler(http.StatusAccepted, fn)
}

func bodyHandler[B any, R any](status int, fn BodyFunc[B, R]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, scope, ids, ok := prepare(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(B)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
			return
		}

		record, err := fn(logger, scope, ids, body)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		h.RespondWithJSON(w, status, record)
	}
}

func prepare(w http.ResponseWriter, r *http.Request) (*zap.Logger, models.RequestScope, []string, bool) {
	logger := m.GetLogger(r.Context())

	ids, err := h.ParsePathParams(r)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
		return nil, models.RequestScope{}, nil, false
	}

	claims, _ := h.GetUserClaims(r.Context())
	site, _ := r.Context().Value(models.SiteKey{}).(models.Site)

	return logger, models.NewRequestScope(r.Context(), claims, site, requestURL(r)), ids, true
}

func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		u.Scheme = proto
	}
	return &u
}

func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		h.RespondWithError(w, apiErr.Code, []string{apiErr.Message})
		return
	}

	logger.Error("Request failed", zap.Error(err))
	h.RespondWithError(w, http.StatusInternalServerError, []string{apierrors.ErrInternalServer})
}
