// Package config loads the runtime configuration from .env, an optional YAML file
// and the environment into an explicit Config value.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"euvdalert/internal/merge"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is passed explicitly to every run; nothing reads viper after Load.
type Config struct {
	Debug           bool    `mapstructure:"debug"`
	LogFile         string  `mapstructure:"log_file"`
	VulnFile        string  `mapstructure:"vuln_file"`
	KeywordsFile    string  `mapstructure:"keywords_file"`
	LockFile        string  `mapstructure:"lock_file"`
	RetentionDays   int     `mapstructure:"retention_days"`
	AlertThreshold  float64 `mapstructure:"alert_threshold"`
	NoVuln          bool    `mapstructure:"novuln"`
	Timezone        string  `mapstructure:"timezone"`
	MetricsTextfile string  `mapstructure:"metrics_textfile"`
	// FirstEPSS enables the FIRST EPSS lookup for daily and alert entries.
	FirstEPSS bool `mapstructure:"first_epss"`

	State  StateConfig  `mapstructure:"state"`
	Feed   FeedConfig   `mapstructure:"feed"`
	EPSS   EPSSConfig   `mapstructure:"epss"`
	Notify NotifyConfig `mapstructure:"notify"`
	Ledger LedgerConfig `mapstructure:"ledger"`
}

// StateConfig holds the notified-id file of each tracked channel.
type StateConfig struct {
	Daily string `mapstructure:"daily"`
	Alert string `mapstructure:"alert"`
}

// FeedConfig configures the EUVD fetcher.
type FeedConfig struct {
	URL          string        `mapstructure:"url"`
	PageSize     int           `mapstructure:"page_size"`
	WindowDays   int           `mapstructure:"window_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DeriveScores bool          `mapstructure:"derive_scores"`
}

// EPSSConfig configures the FIRST EPSS client.
type EPSSConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// ChannelURLs holds one webhook per notification channel. Empty means not configured.
type ChannelURLs struct {
	Daily   string `mapstructure:"daily"`
	Alert   string `mapstructure:"alert"`
	Monthly string `mapstructure:"monthly"`
}

// NotifyConfig configures the delivery providers.
type NotifyConfig struct {
	Slack   ChannelURLs `mapstructure:"slack"`
	Discord ChannelURLs `mapstructure:"discord"`
	// RecordURL is the link prefix for a record id in messages.
	RecordURL string `mapstructure:"record_url"`
}

// LedgerConfig configures the delivery history store. An empty DSN disables it.
type LedgerConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Unprefixed variable names used by existing deployments, checked after the EUVD_ form.
var legacyEnv = map[string]string{
	"vuln_file":            "VULN_FILE",
	"keywords_file":        "KEYWORDS_FILE",
	"state.daily":          "SENT_IDS_DAILY_FILE",
	"state.alert":          "SENT_IDS_ALERT_FILE",
	"lock_file":            "LOCK_FILE",
	"retention_days":       "RETENTION_DAYS",
	"alert_threshold":      "MIN_CVSS_TO_ALERT",
	"novuln":               "NOVULN",
	"first_epss":           "FIRST_EPSS",
	"log_file":             "LOG_FILE",
	"notify.slack.daily":   "WEBHOOK_DAILY_URL",
	"notify.slack.alert":   "WEBHOOK_ALERT_URL",
	"notify.slack.monthly": "WEBHOOK_MONTHLY_URL",
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("debug", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("vuln_file", "euvd.json")
	viper.SetDefault("keywords_file", "keywords.json")
	viper.SetDefault("lock_file", "/tmp/euvd.lock")
	viper.SetDefault("retention_days", merge.DefaultRetentionDays)
	viper.SetDefault("alert_threshold", 8.0)
	viper.SetDefault("novuln", false)
	viper.SetDefault("timezone", "Europe/Paris")
	viper.SetDefault("metrics_textfile", "")
	viper.SetDefault("first_epss", false)

	viper.SetDefault("state.daily", "sent_ids_daily.json")
	viper.SetDefault("state.alert", "sent_ids_alert.json")

	viper.SetDefault("feed.url", "https://euvdservices.enisa.europa.eu/api/vulnerabilities")
	viper.SetDefault("feed.page_size", 100)
	viper.SetDefault("feed.window_days", 1)
	viper.SetDefault("feed.timeout", 30*time.Second)
	viper.SetDefault("feed.max_retries", 3)
	viper.SetDefault("feed.derive_scores", false)

	viper.SetDefault("epss.url", "https://api.first.org/data/v1/epss")
	viper.SetDefault("epss.timeout", 10*time.Second)
	viper.SetDefault("epss.max_retries", 2)

	viper.SetDefault("notify.slack.daily", "")
	viper.SetDefault("notify.slack.alert", "")
	viper.SetDefault("notify.slack.monthly", "")
	viper.SetDefault("notify.discord.daily", "")
	viper.SetDefault("notify.discord.alert", "")
	viper.SetDefault("notify.discord.monthly", "")
	viper.SetDefault("notify.record_url", "https://euvd.enisa.europa.eu/vulnerability/")

	viper.SetDefault("ledger.type", "sqlite")
	viper.SetDefault("ledger.dsn", "")
}

// Load initializes the configuration from .env, the config file and environment variables.
// A cfgFile given explicitly must exist; otherwise ./config.yaml is used when present.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("EUVD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envKey := "EUVD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := viper.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		boolWordHook,
	)
	if err := viper.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// boolWordHook accepts yes/no and on/off for boolean keys, as existing .env files use
// them. Other strings fall through to the standard parsing.
func boolWordHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(data.(string))) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off", "":
		return false, nil
	}
	return data, nil
}
