package configuration

import (
	"context"
	"fmt"
	"strings"

	"figures/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider is a discovered OpenID Connect issuer ready to run the
// authorization code flow.
type Provider struct {
	Name        string
	Provider    *oidc.Provider
	Verifier    *oidc.IDTokenVerifier
	OauthConfig *oauth2.Config
}

type Providers map[string]Provider

// LoadProviders runs discovery against every configured issuer. A provider that
// cannot be discovered is logged and left out so the API still starts.
func LoadProviders(ctx context.Context, apiURL string, config models.AuthConfiguration) Providers {
	providers := Providers{}
	for key, providerConfig := range config.Providers {
		provider, err := oidc.NewProvider(ctx, providerConfig.Issuer)
		if err != nil {
			zap.L().Error("Failed to discover OIDC provider",
				zap.String("provider", key),
				zap.String("issuer", providerConfig.Issuer),
				zap.Error(err))
			continue
		}
		providers[key] = NewProvider(key, apiURL, providerConfig, provider)
		zap.L().Info("OIDC provider loaded", zap.String("provider", key))
	}
	return providers
}

func NewProvider(key string, apiURL string, config models.ProviderConfiguration, provider *oidc.Provider) Provider {
	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return Provider{
		Name:     config.Name,
		Provider: provider,
		Verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		OauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  strings.TrimRight(apiURL, "/") + fmt.Sprintf(OIDCCallbackPath, key),
			Scopes:       scopes,
		},
	}
}
