// Package registry reads the MicroPress plugin registry and checks that
// every listed release has been published.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
)

// DefaultPath is the registry file at the repository root.
const DefaultPath = "registry.json"

// Registry is the list of installable plugins.
type Registry struct {
	Plugins []Entry `json:"plugins"`
}

// Entry describes one published plugin.
type Entry struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	LatestVersion    string `json:"latestVersion"`
	GithubRepo       string `json:"githubRepo"`
	ReleaseURL       string `json:"releaseUrl,omitempty"`
	MinSystemVersion string `json:"minSystemVersion,omitempty"`
}

// Load reads the registry at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dserrors.ConfigError{
				Field:      "registry",
				Value:      path,
				Message:    "registry file not found",
				Suggestion: "Run from the registry repository root or pass --registry",
			}
		}
		return nil, dserrors.UserError{
			Message:    "Failed to read registry file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, dserrors.UserError{
			Message:    "Invalid registry JSON",
			Details:    err.Error(),
			Suggestion: "Validate " + path + " with a JSON linter",
			Err:        err,
		}
	}

	for i, p := range reg.Plugins {
		if p.ID == "" || p.GithubRepo == "" || p.LatestVersion == "" {
			return nil, dserrors.ConfigError{
				Field:      fmt.Sprintf("plugins[%d]", i),
				Value:      p.ID,
				Message:    "id, githubRepo and latestVersion are required",
				Suggestion: "Complete the registry entry",
			}
		}
	}
	return &reg, nil
}

// DownloadURL returns where the release bundle of p is published:
// <githubRepo>/releases/download/v<latestVersion>/plugin.zip.
func DownloadURL(p Entry) string {
	return strings.TrimSuffix(p.GithubRepo, "/") + "/releases/download/v" + p.LatestVersion + "/plugin.zip"
}
