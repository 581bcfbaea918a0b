package configuration

import (
	"fmt"
	"os"
	"strings"

	"figures/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// splitArrayFields turns comma or space separated strings coming from the
// environment into lists.
func splitArrayFields(k *koanf.Koanf) {
	fields := ArrayConfigFields
	for _, provider := range k.MapKeys("auth.providers") {
		fields = append(fields[:len(fields):len(fields)], fmt.Sprintf("auth.providers.%s.scopes", provider))
	}
	for _, field := range fields {
		raw, ok := k.Get(field).(string)
		if !ok || raw == "" {
			continue
		}
		raw = strings.Trim(raw, "[]")
		separator := func(r rune) bool { return r == ',' || r == ' ' }
		if err := k.Set(field, strings.FieldsFunc(raw, separator)); err != nil {
			zap.L().Error("Error parsing array field", zap.String("field", field), zap.Error(err))
		}
	}
}

// readEnvVars maps FIGURES_APP__JWT_SECRET to app.jwt_secret.
func readEnvVars(k *koanf.Koanf) {
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		zap.L().Warn("Error loading environment variables", zap.Error(err))
	}

	splitArrayFields(k)
}

func configFilePath() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	for _, path := range ConfigFileSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readFileConfig(k *koanf.Koanf) {
	path := configFilePath()
	if path == "" {
		zap.L().Warn("No configuration file found", zap.Strings("searched", ConfigFileSearchPaths))
		return
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		zap.L().Fatal("Fatal error loading config file", zap.String("path", path), zap.Error(err))
	}
	zap.L().Info("Read configuration file", zap.String("path", path))
}

func loadDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"app.profile":                ProfileDefault,
		"app.access_token_expiry":    AccessTokenExpiry,
		"app.log_level":              "info",
		"app.port":                   8080,
		"app.site_mode":              string(models.SiteModeStandalone),
		"app.default_site_id":        1,
		"app.rate_limit_per_minute":  120,
		"app.static_files.enabled":   true,
		"app.static_files.directory": "web/dist",

		"database.type":    DatabasePostgres,
		"database.port":    int32(5432),
		"database.sslmode": "disable",
		"database.migrate": true,

		"pipeline.schedule_at":    "02:00",
		"pipeline.force_update":   false,
		"pipeline.export_reports": false,

		"events.type":                        ProviderMemory,
		"events.queues.populate_metrics.name": EventsPopulateMetrics,

		"activity.type":                 "filesystem",
		"activity.filesystem.directory": "data/activity",
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		zap.L().Fatal("Failed to load default configuration", zap.Error(err))
	}
}

func setIfMissing(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func loadConditionalDefaults(k *koanf.Koanf) {
	if k.String("storage.type") == "s3" {
		setIfMissing(k, "storage.s3.region", "us-east-1")
		setIfMissing(k, "storage.s3.force_path_style", true)
		setIfMissing(k, "storage.s3.use_tls", true)
	}
	if k.String("events.type") == "gcp" {
		setIfMissing(k, "events.gcp.subscription_suffix", "-sub")
	}
	if k.String("database.type") == DatabaseMySQL {
		if k.Int("database.port") == 5432 {
			_ = k.Set("database.port", int32(3306))
		}
	}
	if k.String("notifier.type") == "smtp" {
		setIfMissing(k, "notifier.smtp.enable_tls", false)
		setIfMissing(k, "notifier.smtp.skip_verify_tls", false)
	}
	if k.String("notifier.type") == "filesystem" {
		setIfMissing(k, "notifier.filesystem.directory", "data/notifications")
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, in that order of precedence.
func Load() (models.Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)
	readFileConfig(k)
	readEnvVars(k)
	loadConditionalDefaults(k)

	var config models.Configuration
	err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"})
	if err != nil {
		return config, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	validate := validator.New()
	if err = validate.Struct(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func Read() models.Configuration {
	config, err := Load()
	if err != nil {
		zap.L().Fatal("Failed to read configuration", zap.Error(err))
	}
	return config
}
