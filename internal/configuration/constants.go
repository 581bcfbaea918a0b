package configuration

const AppName = "figures"

// JWT Audience constants for token type separation.
const (
	AudienceAccessToken = "figures:api"
	// AudienceReadOnlyToken is minted by figuresctl for scripted report access.
	AudienceReadOnlyToken = "figures:readonly"
)

const AccessTokenExpiry = 60

const (
	CacheInstanceLifetime  = 60
	CacheInstancesKey      = "figures:instances"
	CacheRateLimitKey      = "figures:ratelimit:%s"
	CacheWorkerLockKey     = "figures:worker:lock:%s" //nolint:gosec // not a credential
	CacheWorkerLockTTL     = 60
	CacheWorkerLockRefresh = 55
	CacheSiteMetricsKey    = "figures:site_metrics:%d:%s"
	CacheSiteMetricsTTL    = 300
)

const EventsPopulateMetrics = "populate_metrics"

// Storage and messaging provider types.
const (
	ProviderJetstream = "jetstream"
	ProviderMinio     = "minio"
	ProviderGCP       = "gcp"
	ProviderAWS       = "aws"
	ProviderS3        = "s3"
	ProviderMemory    = "memory"
)

const (
	DatabasePostgres = "postgres"
	DatabaseMySQL    = "mysql"
	DatabaseSQLite   = "sqlite"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 1000
)

// HistoryMonthsBack is how many months a monthly history covers, current month included.
const HistoryMonthsBack = 6

const ReportPresignExpirationInMinutes = 15

const ReportsPrefix = "reports"

var ArrayConfigFields = []string{
	"app.trusted_proxies",
	"app.allowed_origins",
	"cache.redis.hosts",
	"cache.valkey.hosts",
}

var ConfigFileSearchPaths = []string{
	"./figures.yaml",
	"/etc/figures/figures.yaml",
}

const (
	EnvPrefix     = "FIGURES_"
	EnvConfigFile = "FIGURES_CONFIG"
)

// OIDCCallbackPath is where a provider sends the browser back, relative to app.api_url.
const OIDCCallbackPath = "/figures/api/auth/oidc/%s/callback"

// Cookies holding the OpenID Connect login state between begin and callback.
const (
	OIDCStateCookie = "figures_oidc_state"
	OIDCNonceCookie = "figures_oidc_nonce"
	OIDCCookieTTL   = 600
)
