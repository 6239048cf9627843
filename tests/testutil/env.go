package testutil

import (
	"os"
	"testing"
)

// pluginEnv lists the variables the plugin configuration reads.
var pluginEnv = []string{
	"MICROPRESS_PLUGIN_ID",
	"MICROPRESS_TABLE",
	"MICROPRESS_ASSET_BUCKET",
	"AWS_REGION",
}

// SetupTestEnv sets environment variables for the duration of a test. The
// original environment is restored by t.Setenv. Tests using it must not
// call t.Parallel.
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{
//	    "MICROPRESS_PLUGIN_ID": "weather-widget",
//	    "AWS_REGION":           "eu-central-1",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	for key, value := range vars {
		t.Setenv(key, value)
	}
}

// ClearPluginEnv unsets every plugin configuration variable for the
// duration of a test, so a developer's shell does not leak into it.
func ClearPluginEnv(t *testing.T) {
	t.Helper()

	for _, key := range pluginEnv {
		// t.Setenv registers the restore; Unsetenv then removes the value.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("Failed to unset environment variable %s: %v", key, err)
		}
	}
}
