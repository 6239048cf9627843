package commands

import (
	"fmt"
	"os"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewManifestCommand creates the manifest command group.
func NewManifestCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Work with plugin manifests",
	}
	cmd.AddCommand(newManifestValidateCommand(cfg))
	return cmd
}

func newManifestValidateCommand(cfg *config.Config) *cobra.Command {
	var pluginConfigPath string

	cmd := &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate a plugin manifest",
		Long: `Validate a plugin manifest (plugin.yaml or plugin.json).

Required fields, the version, endpoints and the configuration schema are
checked. With --plugin-config, an installed configuration (YAML or JSON) is
also validated against the manifest's configSchema.

Examples:
  micropress-plugin manifest validate
  micropress-plugin manifest validate dist/plugin.json --plugin-config config.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "plugin.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			m, err := manifest.Load(path)
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to load manifest",
					Details:    err.Error(),
					Suggestion: "Check the path and the YAML/JSON syntax of the manifest",
					Err:        err,
				}
			}
			if err := m.Validate(); err != nil {
				return err
			}

			if pluginConfigPath != "" {
				pluginConfig, err := readPluginConfig(pluginConfigPath)
				if err != nil {
					return err
				}
				if err := m.ValidateConfig(pluginConfig); err != nil {
					return err
				}
				loggerOf(cfg).Debug("Plugin config %s matches configSchema", pluginConfigPath)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s %s\n", m.ID, m.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&pluginConfigPath, "plugin-config", "", "Installed plugin configuration to check against configSchema")

	return cmd
}

func readPluginConfig(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to read plugin configuration",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	// YAML accepts JSON documents as well.
	var out map[string]interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, dserrors.SimplifyError(err)
	}
	return out, nil
}
