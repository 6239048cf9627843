package main

import (
	"fmt"
	"os"

	"github.com/JWThewes/MicroPress-Plugin-SDK/cmd/micropress-plugin/commands"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "micropress-plugin",
		Short: "MicroPress plugin SDK tooling",
		Long: `micropress-plugin validates plugin manifests and the plugin registry, and
exercises the plugin SDK governor (secrets, outbound HTTP) against a
configured plugin identity.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRegistryCommand(cfg),
		commands.NewManifestCommand(cfg),
		commands.NewSecretCommand(cfg, commands.AWSFactory),
		commands.NewFetchCommand(cfg, commands.LocalFactory),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
