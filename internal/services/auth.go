package services

import (
	"context"
	"errors"
	"strings"

	"figures/internal/activity"
	"figures/internal/configuration"
	apierrors "figures/internal/errors"
	"figures/internal/handlers"
	h "figures/internal/helpers"
	m "figures/internal/middlewares"
	"figures/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	errInvalidCredentials = apierrors.NewAPIError(401, apierrors.ErrInvalidCredentials)
	errProviderNotFound   = apierrors.NewAPIError(404, apierrors.ErrProviderNotFound)
)

// AuthService exchanges operator credentials, or a host user's OpenID Connect
// login, for an access token.
type AuthService struct {
	DB             *gorm.DB
	JWTSecret      string
	Expiry         int
	Providers      configuration.Providers
	ActivityLogger activity.IActivityLogger
}

func (s AuthService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.AuthLoginBody]).Post("/login", handlers.BodyHandler(s.Login))

	r.Route("/oidc/{provider}", func(r chi.Router) {
		r.Get("/", handlers.OpenIDBeginHandler(s.OpenIDBegin))
		r.Get("/callback", handlers.OpenIDCallbackHandler(s.OpenIDCallback))
	})
	return r
}

func (s AuthService) Login(
	logger *zap.Logger,
	scope models.RequestScope,
	_ []string,
	body models.AuthLoginBody,
) (models.AuthLoginResponse, error) {
	var operator models.Operator
	err := s.DB.WithContext(scope.Context()).Where("email = ?", body.Email).First(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AuthLoginResponse{}, errInvalidCredentials
		}
		return models.AuthLoginResponse{}, err
	}

	match, err := argon2id.ComparePasswordAndHash(body.Password, operator.HashedPassword)
	if err != nil || !match {
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	token, err := h.NewAccessToken(s.JWTSecret, &operator, s.Expiry)
	if err != nil {
		logger.Error("Failed to generate access token", zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.NewAPIError(500, apierrors.ErrGenerateAccessTokenFailed)
	}

	action := models.Activity{
		Message: activity.OperatorLoggedIn,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.OperatorLoggedIn,
			"object_type": activity.ObjectOperator,
			"operator_id": operator.ID.String(),
		}),
	}
	if logErr := s.ActivityLogger.Send(action); logErr != nil {
		logger.Error("Failed to log login activity", zap.Error(logErr))
	}

	return models.AuthLoginResponse{AccessToken: token, ExpiresIn: s.Expiry * 60}, nil
}

func (s AuthService) OpenIDBegin(providerKey string, state string, nonce string) (string, error) {
	provider, ok := s.Providers[providerKey]
	if !ok {
		return "", errProviderNotFound
	}
	return provider.OauthConfig.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// hostIdentity holds the ID token claims used to find the host user.
type hostIdentity struct {
	Email    string `json:"email"`
	Username string `json:"preferred_username"`
}

// OpenIDCallback trades the authorization code for an ID token and signs in
// the matching active host user. Global staff get an admin token.
func (s AuthService) OpenIDCallback(
	ctx context.Context, logger *zap.Logger, providerKey string, code string, nonce string,
) (models.AuthLoginResponse, error) {
	provider, ok := s.Providers[providerKey]
	if !ok {
		return models.AuthLoginResponse{}, errProviderNotFound
	}

	oauth2Token, err := provider.OauthConfig.Exchange(ctx, code)
	if err != nil {
		logger.Debug("Failed to exchange authorization code", zap.String("provider", providerKey), zap.Error(err))
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		logger.Debug("No id_token in token response", zap.String("provider", providerKey))
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	idToken, err := provider.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Debug("Failed to verify ID token", zap.String("provider", providerKey), zap.Error(err))
		return models.AuthLoginResponse{}, errInvalidCredentials
	}
	if idToken.Nonce != nonce {
		logger.Debug("Nonce does not match", zap.String("provider", providerKey))
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	var identity hostIdentity
	if err = idToken.Claims(&identity); err != nil {
		return models.AuthLoginResponse{}, errInvalidCredentials
	}
	if identity.Email == "" && identity.Username == "" && provider.Provider != nil {
		userInfo, err := provider.Provider.UserInfo(ctx, oauth2.StaticTokenSource(oauth2Token))
		if err != nil {
			logger.Debug("Failed to get user info", zap.String("provider", providerKey), zap.Error(err))
			return models.AuthLoginResponse{}, errInvalidCredentials
		}
		if err = userInfo.Claims(&identity); err != nil {
			return models.AuthLoginResponse{}, errInvalidCredentials
		}
	}

	user, err := s.findHostUser(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("No active host user for identity",
				zap.String("username", identity.Username),
				zap.String("email", identity.Email))
			return models.AuthLoginResponse{}, errForbidden
		}
		return models.AuthLoginResponse{}, err
	}

	token, err := h.NewHostUserToken(s.JWTSecret, &user, configuration.AudienceAccessToken, s.Expiry)
	if err != nil {
		logger.Error("Failed to generate access token", zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.NewAPIError(500, apierrors.ErrGenerateAccessTokenFailed)
	}

	action := models.Activity{
		Message: activity.HostUserLoggedIn,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.HostUserLoggedIn,
			"object_type": activity.ObjectHostUser,
			"provider":    providerKey,
		}),
	}
	if logErr := s.ActivityLogger.Send(action); logErr != nil {
		logger.Error("Failed to log login activity", zap.Error(logErr))
	}

	return models.AuthLoginResponse{AccessToken: token, ExpiresIn: s.Expiry * 60}, nil
}

// findHostUser matches on username first, then on email.
func (s AuthService) findHostUser(ctx context.Context, identity hostIdentity) (models.User, error) {
	var user models.User
	if identity.Username != "" {
		err := s.DB.WithContext(ctx).
			Where("is_active = ? AND username = ?", true, identity.Username).
			First(&user).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return user, err
		}
	}
	if identity.Email == "" {
		return user, gorm.ErrRecordNotFound
	}
	err := s.DB.WithContext(ctx).
		Where("is_active = ? AND LOWER(email) = ?", true, strings.ToLower(identity.Email)).
		Order("id").
		First(&user).Error
	return user, err
}
