package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/sdk"
	"github.com/JWThewes/MicroPress-Plugin-SDK/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefinition_Load(t *testing.T) {
	configContent := `version: 0

plugin:
  id: weather-widget
  config:
    city: Berlin
    units: metric

aws:
  region: eu-central-1
  profile: micropress-dev
  assume_role: arn:aws:iam::123456789012:role/plugin-runtime

data:
  table: micropress-content

assets:
  bucket: micropress-assets
  url_ttl_ms: 600000

http:
  timeout_ms: 5000
  rate_limit: 20
  rate_window_ms: 10000

metrics:
  enabled: true
`

	config := &Config{
		Path:      writeConfig(t, configContent),
		Logger:    logging.New(false, true),
		LookupEnv: noEnv,
	}
	require.NoError(t, config.Load())

	def := config.Definition
	require.NotNil(t, def)
	assert.Equal(t, "weather-widget", def.Plugin.ID)
	assert.Equal(t, "Berlin", def.Plugin.Config["city"])
	assert.Equal(t, "eu-central-1", def.AWS.Region)

	cfg, err := config.SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, sdk.Config{
		PluginID:      "weather-widget",
		TableName:     "micropress-content",
		Region:        "eu-central-1",
		AssetBucket:   "micropress-assets",
		PluginConfig:  map[string]interface{}{"city": "Berlin", "units": "metric"},
		HTTPTimeout:   5 * time.Second,
		RateLimit:     20,
		RateWindow:    10 * time.Second,
		AssetURLTTL:   10 * time.Minute,
		EnableMetrics: true,
	}, cfg)

	assert.Equal(t, sdk.AWSOptions{
		Profile:    "micropress-dev",
		AssumeRole: "arn:aws:iam::123456789012:role/plugin-runtime",
	}, config.AWSOptions())
}

func TestLoad_Defaults(t *testing.T) {
	config := &Config{Path: writeConfig(t, "plugin:\n  id: minimal\n"), LookupEnv: noEnv}
	require.NoError(t, config.Load())

	cfg, err := config.SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.PluginID)
	assert.Zero(t, cfg.HTTPTimeout, "zero lets the SDK apply its default")
	assert.Zero(t, cfg.RateLimit)
	assert.False(t, cfg.EnableMetrics)

	s, err := sdk.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.PluginID())
}

func TestLoad_EnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvPluginID:    "from-env",
		EnvTable:       "env-table",
		EnvAssetBucket: "env-bucket",
		EnvRegion:      "us-west-2",
	}
	config := &Config{
		Path: writeConfig(t, "plugin:\n  id: from-file\ndata:\n  table: file-table\n"),
		LookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
	}
	require.NoError(t, config.Load())

	cfg, err := config.SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.PluginID)
	assert.Equal(t, "env-table", cfg.TableName)
	assert.Equal(t, "env-bucket", cfg.AssetBucket)
	assert.Equal(t, "us-west-2", cfg.Region)
}

func TestLoad_EnvSuppliesPluginID(t *testing.T) {
	config := &Config{
		Path: writeConfig(t, "data:\n  table: t\n"),
		LookupEnv: func(key string) (string, bool) {
			if key == EnvPluginID {
				return "  padded  ", true
			}
			return "", false
		},
	}
	require.NoError(t, config.Load())
	assert.Equal(t, "padded", config.Definition.Plugin.ID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"missing plugin id", "data:\n  table: t\n", "plugin.id"},
		{"separator in id", "plugin:\n  id: a#b\n", "plugin.id"},
		{"unsupported version", "version: 2\nplugin:\n  id: a\n", "version"},
		{"negative timeout", "plugin:\n  id: a\nhttp:\n  timeout_ms: -1\n", "http.timeout_ms"},
		{"invalid yaml", "plugin: [unterminated\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{Path: writeConfig(t, tt.content), LookupEnv: noEnv}
			err := config.Load()

			var cfgErr dserrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Nil(t, config.Definition)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	config := &Config{Path: filepath.Join(t.TempDir(), "nope.yaml"), LookupEnv: noEnv}
	err := config.Load()

	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "path", cfgErr.Field)
	assert.Contains(t, cfgErr.Suggestion, DefaultPath)
}

func TestSDKConfig_NotLoaded(t *testing.T) {
	_, err := (&Config{}).SDKConfig()
	assert.Error(t, err)
	assert.Equal(t, sdk.AWSOptions{}, (&Config{}).AWSOptions())
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	testutil.ClearPluginEnv(t)
	testutil.SetupTestEnv(t, map[string]string{
		EnvPluginID: "from-process-env",
		EnvRegion:   "ap-southeast-2",
	})

	logger := testutil.NewTestLogger(t, true)
	config := &Config{Path: writeConfig(t, "plugin:\n  id: from-file\n"), Logger: logger.Logger}
	require.NoError(t, config.Load())

	assert.Equal(t, "from-process-env", config.Definition.Plugin.ID)
	assert.Equal(t, "ap-southeast-2", config.Definition.AWS.Region)
	assert.Empty(t, config.Definition.Data.Table)
	logger.AssertContains(t, "for plugin from-process-env")
	logger.AssertLogCount(t, "debug", 1)
}
