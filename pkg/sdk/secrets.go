package sdk

import (
	"context"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/metrics"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/audit"
)

// SecretPath returns the parameter path of a plugin secret.
func (s *SDK) SecretPath(name string) string {
	return "/micropress/plugins/" + s.pluginID + "/" + name
}

// GetSecret fetches and decrypts the plugin secret name. A secret that does
// not exist is reported with found=false and a nil error; any other store
// failure is returned as a *SecretStoreFailure.
func (s *SDK) GetSecret(ctx context.Context, name string) (string, bool, error) {
	if s.secrets == nil {
		return "", false, ErrSecretsUnavailable
	}
	if name == "" {
		return "", false, &InvalidRequestError{Field: "secret name", Reason: "must not be empty"}
	}

	s.Log(audit.LevelInfo, "Fetching secret: "+name, nil)

	value, found, err := s.secrets.GetParameter(ctx, s.SecretPath(name), true)
	if err != nil {
		s.Log(audit.LevelError, "Failed to fetch secret: "+name, map[string]any{"error": err.Error()})
		s.metrics.RecordSecretLookup(s.pluginID, metrics.SecretError)
		return "", false, &SecretStoreFailure{Name: name, Err: err}
	}

	if !found {
		s.Log(audit.LevelWarn, "Secret not found: "+name, nil)
		s.metrics.RecordSecretLookup(s.pluginID, metrics.SecretNotFound)
		return "", false, nil
	}

	s.metrics.RecordSecretLookup(s.pluginID, metrics.SecretFound)
	return value, true, nil
}
