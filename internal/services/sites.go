package services

import (
	apierrors "figures/internal/errors"
	"figures/internal/handlers"
	h "figures/internal/helpers"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/serializers"
	"figures/internal/sites"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errSiteNotFound = apierrors.NewAPIError(404, apierrors.ErrSiteNotFound)

// SiteService lists the sites. It is only mounted behind AuthorizeDefaultSite.
type SiteService struct {
	DB    *gorm.DB
	Sites sites.Scope
}

func (s SiteService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(m.AuthorizeDefaultSite(s.Sites.DefaultSiteID))
	r.With(m.ValidateQuery[models.SiteQueryParams]).
		Get("/", handlers.GetListHandler(s.GetSiteList))
	r.Get("/{id0}", handlers.GetOneHandler(s.GetSite))
	return r
}

func (s SiteService) sitesQuery(scope models.RequestScope) *gorm.DB {
	query := s.DB.WithContext(scope.Context()).Model(&models.Site{})
	if s.Sites.Mode == models.SiteModeStandalone {
		query = query.Where("id = ?", s.Sites.DefaultSiteID)
	}
	return query
}

func (s SiteService) GetSiteList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.SiteQueryParams,
) (models.Page[models.SiteResponse], error) {
	query := containsFilter(s.sitesQuery(scope), "domain", params.Domain)
	query = containsFilter(query, "name", params.Name)

	var rows []models.Site
	count, limit, offset, err := paginate(query, params.PageQueryParams, "id", &rows)
	if err != nil {
		return models.Page[models.SiteResponse]{}, err
	}
	return newPage(scope, count, limit, offset, serializers.Sites(rows)), nil
}

func (s SiteService) GetSite(_ *zap.Logger, scope models.RequestScope, ids []string) (models.SiteResponse, error) {
	id, ok := h.ParseUintParam(ids[0])
	if !ok {
		return models.SiteResponse{}, errSiteNotFound
	}

	var site models.Site
	if err := s.sitesQuery(scope).Where("id = ?", id).First(&site).Error; err != nil {
		return models.SiteResponse{}, notFoundAs(err, errSiteNotFound)
	}
	return serializers.Site(site), nil
}
