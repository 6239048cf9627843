package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/sdk"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not set.
const DefaultPath = "micropress-plugin.yaml"

// Environment variables that override values from the file.
const (
	EnvPluginID    = "MICROPRESS_PLUGIN_ID"
	EnvTable       = "MICROPRESS_TABLE"
	EnvAssetBucket = "MICROPRESS_ASSET_BUCKET"
	EnvRegion      = "AWS_REGION"
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition

	// LookupEnv is os.LookupEnv unless replaced in tests.
	LookupEnv func(key string) (string, bool)
}

// Definition represents the micropress-plugin.yaml structure
type Definition struct {
	Version int           `yaml:"version"`
	Plugin  PluginConfig  `yaml:"plugin"`
	AWS     AWSConfig     `yaml:"aws,omitempty"`
	Data    DataConfig    `yaml:"data,omitempty"`
	Assets  AssetsConfig  `yaml:"assets,omitempty"`
	HTTP    HTTPConfig    `yaml:"http,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// PluginConfig identifies the plugin and carries its installed configuration
type PluginConfig struct {
	ID     string                 `yaml:"id"`
	Config map[string]interface{} `yaml:"config,omitempty"`
}

// AWSConfig selects the AWS account, region and credentials
type AWSConfig struct {
	Region          string `yaml:"region,omitempty"`
	Profile         string `yaml:"profile,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AssumeRole      string `yaml:"assume_role,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// DataConfig locates the shared content table
type DataConfig struct {
	Table string `yaml:"table,omitempty"`
}

// AssetsConfig locates plugin assets
type AssetsConfig struct {
	Bucket   string `yaml:"bucket,omitempty"`
	URLTTLMs int    `yaml:"url_ttl_ms,omitempty"`
}

// HTTPConfig tunes the outbound request governor
type HTTPConfig struct {
	TimeoutMs    int `yaml:"timeout_ms,omitempty"`    // default: 30000
	RateLimit    int `yaml:"rate_limit,omitempty"`    // default: 100
	RateWindowMs int `yaml:"rate_window_ms,omitempty"` // default: 60000
}

// MetricsConfig toggles Prometheus collectors
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the configuration file, then applies environment
// overrides.
func (c *Config) Load() error {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: fmt.Sprintf("Create %s with at least 'plugin: {id: <plugin-id>}' or pass --config", DefaultPath),
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your " + DefaultPath,
		}
	}

	c.applyEnv(&def)

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = &def
	if c.Logger != nil {
		c.Logger.Debug("Loaded configuration from %s for plugin %s", path, def.Plugin.ID)
	}
	return nil
}

func (c *Config) applyEnv(def *Definition) {
	lookup := c.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	override := func(target *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	override(&def.Plugin.ID, EnvPluginID)
	override(&def.Data.Table, EnvTable)
	override(&def.Assets.Bucket, EnvAssetBucket)
	override(&def.AWS.Region, EnvRegion)
}

// Validate checks the loaded definition
func (d *Definition) Validate() error {
	if d.Plugin.ID == "" {
		return dserrors.ConfigError{
			Field:      "plugin.id",
			Message:    "plugin id is required",
			Suggestion: "Set plugin.id in the config file or " + EnvPluginID,
		}
	}
	if strings.Contains(d.Plugin.ID, "#") {
		return dserrors.ConfigError{
			Field:      "plugin.id",
			Value:      d.Plugin.ID,
			Message:    "plugin id must not contain '#'",
			Suggestion: "Use the id from the plugin manifest",
		}
	}

	for field, v := range map[string]int{
		"http.timeout_ms":     d.HTTP.TimeoutMs,
		"http.rate_limit":     d.HTTP.RateLimit,
		"http.rate_window_ms": d.HTTP.RateWindowMs,
		"assets.url_ttl_ms":   d.Assets.URLTTLMs,
	} {
		if v < 0 {
			return dserrors.ConfigError{
				Field:      field,
				Value:      v,
				Message:    "value must not be negative",
				Suggestion: "Remove the setting to use the default",
			}
		}
	}
	return nil
}

// SDKConfig returns the programmatic SDK configuration
func (c *Config) SDKConfig() (sdk.Config, error) {
	if c.Definition == nil {
		return sdk.Config{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}
	d := c.Definition

	return sdk.Config{
		PluginID:      d.Plugin.ID,
		TableName:     d.Data.Table,
		Region:        d.AWS.Region,
		AssetBucket:   d.Assets.Bucket,
		PluginConfig:  d.Plugin.Config,
		HTTPTimeout:   millis(d.HTTP.TimeoutMs),
		RateLimit:     d.HTTP.RateLimit,
		RateWindow:    millis(d.HTTP.RateWindowMs),
		AssetURLTTL:   millis(d.Assets.URLTTLMs),
		EnableMetrics: d.Metrics.Enabled,
	}, nil
}

// AWSOptions returns the AWS credential settings
func (c *Config) AWSOptions() sdk.AWSOptions {
	if c.Definition == nil {
		return sdk.AWSOptions{}
	}
	a := c.Definition.AWS
	return sdk.AWSOptions{
		Profile:         a.Profile,
		Endpoint:        a.Endpoint,
		AssumeRole:      a.AssumeRole,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.SecretAccessKey,
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
