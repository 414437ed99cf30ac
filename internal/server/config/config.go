// Package config handles configuration for the server component: defaults,
// an optional JSON/YAML file, a .env file, environment variables and
// command-line flags, resolved through viper in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the BMD server.
type Config struct {
	HTTP struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"http"`
	GRPC struct {
		HealthAddress string `mapstructure:"health_address"`
	} `mapstructure:"grpc"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	// SecretKey signs access tokens (HS256).
	SecretKey      string        `mapstructure:"secret_key"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`

	Session struct {
		CookieName string `mapstructure:"cookie_name"`
		Secure     bool   `mapstructure:"secure"`
	} `mapstructure:"session"`

	Workflow WorkflowConfig `mapstructure:"workflow"`

	Webhook struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"webhook"`

	S3 struct {
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"s3"`

	ORCID struct {
		Issuer       string `mapstructure:"issuer"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"orcid"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// WorkflowConfig configures the outbound Workflow API call.
type WorkflowConfig struct {
	APIURL             string        `mapstructure:"api_url"`
	APIKey             string        `mapstructure:"api_key"`
	AuthHeader         string        `mapstructure:"auth_header"`
	AuthScheme         string        `mapstructure:"auth_scheme"`
	WebhookURLTemplate string        `mapstructure:"webhook_url_template"`
	DryRun             bool          `mapstructure:"dry_run"`
	Force              bool          `mapstructure:"force"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Mock               bool          `mapstructure:"mock"`
	MockDelay          time.Duration `mapstructure:"mock_delay"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTP.Address = ":8080"
	c.GRPC.HealthAddress = ":8081"
	c.Database.DSN = "file:data/bmd.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.SecretKey = "bmd-secret-key-change-in-production"
	c.AccessTokenTTL = 24 * time.Hour
	c.PublicBaseURL = "http://localhost:8080"
	c.Session.CookieName = "bmd_session"
	c.Session.Secure = false
	c.Workflow = WorkflowConfig{
		APIURL:             "http://workflow-api:8002/api/v1/workflows",
		AuthHeader:         "Authorization",
		AuthScheme:         "Bearer",
		WebhookURLTemplate: "http://bmd-bat-app:8080/api/workflows/webhook/{workflow_id}",
		Timeout:            15 * time.Second,
		MockDelay:          10 * time.Second,
	}
	c.S3.Region = "us-east-1"
	c.ORCID.Issuer = "https://orcid.org"
	c.ORCID.RedirectURL = "http://localhost:8080/auth/orcid/callback"
	c.Log.Level = "info"
}

// setDefaults registers every key with viper so that environment variables
// are picked up by Unmarshal even when no config file mentions them.
func setDefaults(v *viper.Viper) {
	var d Config
	d.LoadDefaults()

	defaults := map[string]any{
		"http.address":                  d.HTTP.Address,
		"grpc.health_address":           d.GRPC.HealthAddress,
		"database.dsn":                  d.Database.DSN,
		"secret_key":                    d.SecretKey,
		"access_token_ttl":              d.AccessTokenTTL,
		"public_base_url":               d.PublicBaseURL,
		"session.cookie_name":           d.Session.CookieName,
		"session.secure":                d.Session.Secure,
		"workflow.api_url":              d.Workflow.APIURL,
		"workflow.api_key":              d.Workflow.APIKey,
		"workflow.auth_header":          d.Workflow.AuthHeader,
		"workflow.auth_scheme":          d.Workflow.AuthScheme,
		"workflow.webhook_url_template": d.Workflow.WebhookURLTemplate,
		"workflow.dry_run":              d.Workflow.DryRun,
		"workflow.force":                d.Workflow.Force,
		"workflow.timeout":              d.Workflow.Timeout,
		"workflow.mock":                 d.Workflow.Mock,
		"workflow.mock_delay":           d.Workflow.MockDelay,
		"webhook.secret":                d.Webhook.Secret,
		"s3.bucket":                     d.S3.Bucket,
		"s3.region":                     d.S3.Region,
		"s3.endpoint":                   d.S3.Endpoint,
		"s3.access_key":                 d.S3.AccessKey,
		"s3.secret_key":                 d.S3.SecretKey,
		"orcid.issuer":                  d.ORCID.Issuer,
		"orcid.client_id":               d.ORCID.ClientID,
		"orcid.client_secret":           d.ORCID.ClientSecret,
		"orcid.redirect_url":            d.ORCID.RedirectURL,
		"log.level":                     d.Log.Level,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"http-address":   "http.address",
	"health-address": "grpc.health_address",
	"dsn":            "database.dsn",
	"secret-key":     "secret_key",
	"workflow-url":   "workflow.api_url",
	"mock":           "workflow.mock",
	"mock-delay":     "workflow.mock_delay",
	"log-level":      "log.level",
}

// RegisterFlags adds the server flags to fs with their default values.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP("http-address", "a", d.HTTP.Address, "HTTP listen address")
	fs.String("health-address", d.GRPC.HealthAddress, "gRPC health listen address")
	fs.StringP("dsn", "d", d.Database.DSN, "database DSN (postgres:// or SQLite file:)")
	fs.StringP("secret-key", "s", d.SecretKey, "JWT signing secret")
	fs.String("workflow-url", d.Workflow.APIURL, "Workflow API endpoint")
	fs.Bool("mock", d.Workflow.Mock, "use the in-process mock workflow runner")
	fs.Duration("mock-delay", d.Workflow.MockDelay, "mock runner completion delay")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load resolves the configuration. configFile and envFile are optional;
// fs may be nil when no flags apply.
func Load(fs *pflag.FlagSet, configFile, envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
