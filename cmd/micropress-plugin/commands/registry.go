package commands

import (
	"fmt"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/registry"
	"github.com/spf13/cobra"
)

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Work with the plugin registry",
	}
	cmd.AddCommand(newRegistryValidateCommand(cfg, nil))
	return cmd
}

func newRegistryValidateCommand(cfg *config.Config, extra []registry.Option) *cobra.Command {
	var (
		registryPath string
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every registry release is published",
		Long: `Check that the release bundle of every plugin in the registry exists.

For each entry the release URL
  <githubRepo>/releases/download/v<latestVersion>/plugin.zip
is requested with HEAD. A 200 or 302 response counts as published; any other
status or a network error marks the release as missing.

Examples:
  micropress-plugin registry validate
  micropress-plugin registry validate --registry ./registry.json --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(registryPath)
			if err != nil {
				return err
			}

			logger := loggerOf(cfg)
			opts := append([]registry.Option{
				registry.WithConcurrency(concurrency),
				registry.WithLogger(logger),
			}, extra...)

			logger.Debug("Validating %d registry entries", len(reg.Plugins))
			results, err := registry.NewValidator(opts...).Validate(cmd.Context(), reg)
			if err != nil {
				return fmt.Errorf("registry validation interrupted: %w", err)
			}

			if !registry.Report(cmd.OutOrStdout(), cmd.ErrOrStderr(), results) {
				return dserrors.UserError{
					Message:    "Registry validation failed",
					Suggestion: "Publish the missing releases or fix latestVersion in " + registryPath,
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", registry.DefaultPath, "Registry file path")
	cmd.Flags().IntVar(&concurrency, "concurrency", registry.DefaultConcurrency, "Releases checked in parallel")

	return cmd
}
