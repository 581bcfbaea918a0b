package models

type Configuration struct {
	App      AppConfiguration       `mapstructure:"app"      validate:"required"`
	Database DatabaseConfiguration  `mapstructure:"database" validate:"required"`
	Pipeline PipelineConfiguration  `mapstructure:"pipeline" validate:"required"`
	Cache    *CacheConfiguration    `mapstructure:"cache"`
	Storage  *StorageConfiguration  `mapstructure:"storage"`
	Events   EventsConfiguration    `mapstructure:"events"   validate:"required"`
	Notifier *NotifierConfiguration `mapstructure:"notifier"`
	Activity ActivityConfiguration  `mapstructure:"activity" validate:"required"`
	Auth     AuthConfiguration      `mapstructure:"auth"`
}

type SiteMode string

const (
	SiteModeStandalone SiteMode = "standalone"
	SiteModeMultisite  SiteMode = "multisite"
	SiteModeMicrosite  SiteMode = "microsite"
)

type AppConfiguration struct {
	Profile            string                 `mapstructure:"profile"               validate:"oneof=default api worker"`
	AdminEmail         string                 `mapstructure:"admin_email"           validate:"required,email"`
	AdminPassword      string                 `mapstructure:"admin_password"        validate:"required"`
	APIURL             string                 `mapstructure:"api_url"               validate:"required"`
	AllowedOrigins     []string               `mapstructure:"allowed_origins"       validate:"required"`
	JWTSecret          string                 `mapstructure:"jwt_secret"            validate:"required"`
	AccessTokenExpiry  int                    `mapstructure:"access_token_expiry"   validate:"gte=1,lte=1440"`
	LogLevel           string                 `mapstructure:"log_level"             validate:"oneof=debug info warn error fatal panic"`
	Port               int                    `mapstructure:"port"                  validate:"gte=80,lte=65535"`
	SiteMode           SiteMode               `mapstructure:"site_mode"             validate:"oneof=standalone multisite microsite"`
	DefaultSiteID      uint                   `mapstructure:"default_site_id"       validate:"gte=1"`
	ProfileImageURL    string                 `mapstructure:"profile_image_url"     validate:"omitempty,http_url"`
	RateLimitPerMinute int                    `mapstructure:"rate_limit_per_minute" validate:"gte=1"`
	StaticFiles        StaticConfiguration    `mapstructure:"static_files"`
	TrustedProxies     []string               `mapstructure:"trusted_proxies"`
	Telemetry          TelemetryConfiguration `mapstructure:"telemetry"`
	Profiling          ProfilingConfiguration `mapstructure:"profiling"`
}

type AuthConfiguration struct {
	Providers map[string]ProviderConfiguration `mapstructure:"providers" validate:"omitempty,dive"`
}

// ProviderConfiguration declares an OpenID Connect issuer, usually the Open edX
// LMS, whose users may sign in with their platform account.
type ProviderConfiguration struct {
	Name         string   `mapstructure:"name"          validate:"required"`
	Issuer       string   `mapstructure:"issuer"        validate:"required,http_url"`
	ClientID     string   `mapstructure:"client_id"     validate:"required"`
	ClientSecret string   `mapstructure:"client_secret" validate:"required"`
	Scopes       []string `mapstructure:"scopes"`
}

type DatabaseConfiguration struct {
	Type     string `mapstructure:"type"     validate:"required,oneof=postgres mysql sqlite"`
	Host     string `mapstructure:"host"     validate:"required_unless=Type sqlite"`
	Port     int32  `mapstructure:"port"     validate:"omitempty,gte=1,lte=65535"`
	User     string `mapstructure:"user"     validate:"required_unless=Type sqlite"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"     validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type PipelineConfiguration struct {
	ScheduleAt      string `mapstructure:"schedule_at"       validate:"required,datetime=15:04"`
	ForceUpdate     bool   `mapstructure:"force_update"`
	ExportReports   bool   `mapstructure:"export_reports"`
	NotifyOnFailure string `mapstructure:"notify_on_failure" validate:"omitempty,email"`
}

type CacheConfiguration struct {
	Type   string                    `mapstructure:"type"   validate:"required,oneof=redis valkey"`
	Redis  *RedisCacheConfiguration  `mapstructure:"redis"  validate:"required_if=Type redis"`
	Valkey *ValkeyCacheConfiguration `mapstructure:"valkey" validate:"required_if=Type valkey"`
}

type RedisCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type ValkeyCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

// StorageConfiguration selects the object store receiving exported reports.
type StorageConfiguration struct {
	Type         string                     `mapstructure:"type"   validate:"required,oneof=minio gcp aws s3"`
	Minio        *MinioStorageConfiguration `mapstructure:"minio"  validate:"required_if=Type minio"`
	CloudStorage *CloudStorage              `mapstructure:"gcp"    validate:"required_if=Type gcp"`
	AWS          *AWSConfiguration          `mapstructure:"aws"    validate:"required_if=Type aws"`
	S3           *S3Configuration           `mapstructure:"s3"     validate:"required_if=Type s3"`
}

type MinioStorageConfiguration struct {
	BucketName       string `mapstructure:"bucket_name"       validate:"required"`
	Endpoint         string `mapstructure:"endpoint"          validate:"required"`
	ExternalEndpoint string `mapstructure:"external_endpoint" validate:"required,http_url"`
	ClientID         string `mapstructure:"client_id"         validate:"required"`
	ClientSecret     string `mapstructure:"client_secret"     validate:"required"`
}

type CloudStorage struct {
	BucketName string `mapstructure:"bucket_name" validate:"required"`
	ProjectID  string `mapstructure:"project_id"  validate:"required"`
}

// AWSConfiguration for AWS S3 storage.
// Uses AWS SDK default credential chain (environment variables, shared credentials, IAM roles).
type AWSConfiguration struct {
	BucketName string `mapstructure:"bucket_name" validate:"required"`
}

// S3Configuration for generic S3-compatible providers.
type S3Configuration struct {
	BucketName       string `mapstructure:"bucket_name"       validate:"required"`
	Endpoint         string `mapstructure:"endpoint"          validate:"required"`
	ExternalEndpoint string `mapstructure:"external_endpoint" validate:"required,http_url"`
	AccessKey        string `mapstructure:"access_key"        validate:"required"`
	SecretKey        string `mapstructure:"secret_key"        validate:"required"`
	Region           string `mapstructure:"region"`
	// ForcePathStyle uses path-style URLs (endpoint/bucket/key) instead of virtual-hosted style (bucket.endpoint/key).
	ForcePathStyle bool `mapstructure:"force_path_style"`
	UseTLS         bool `mapstructure:"use_tls"`
}

type QueueConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type EventsConfiguration struct {
	Type      string                 `mapstructure:"type"      validate:"required,oneof=jetstream gcp aws memory"`
	Queues    map[string]QueueConfig `mapstructure:"queues"    validate:"required"`
	Jetstream *JetStreamEventsConfig `mapstructure:"jetstream" validate:"required_if=Type jetstream"`
	PubSub    *PubSubConfiguration   `mapstructure:"gcp"       validate:"required_if=Type gcp"`
}

type PubSubConfiguration struct {
	ProjectID          string `mapstructure:"project_id"          validate:"required"`
	SubscriptionSuffix string `mapstructure:"subscription_suffix"`
}

type JetStreamEventsConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

type MailerConfiguration struct {
	Host          string `mapstructure:"host"            validate:"required"`
	Port          int    `mapstructure:"port"            validate:"required"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"          validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type NotifierConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=smtp filesystem"`
	SMTP       *MailerConfiguration             `mapstructure:"smtp"       validate:"required_if=Type smtp"`
	Filesystem *FilesystemNotifierConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemNotifierConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type ActivityConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=loki filesystem"`
	Loki       *LokiConfiguration               `mapstructure:"loki"       validate:"required_if=Type loki"`
	Filesystem *FilesystemActivityConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemActivityConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type LokiConfiguration struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,http_url"`
}

type StaticConfiguration struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

type TelemetryConfiguration struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     validate:"required_if=Enabled true"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

type ProfilingConfiguration struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url" validate:"required_if=Enabled true,omitempty,http_url"`
}
