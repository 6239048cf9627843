package commands

import (
	"encoding/json"
	"fmt"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/spf13/cobra"
)

// NewSecretCommand creates the secret command group.
func NewSecretCommand(cfg *config.Config, factory SDKFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Read plugin secrets",
	}
	cmd.AddCommand(newSecretGetCommand(cfg, factory))
	return cmd
}

func newSecretGetCommand(cfg *config.Config, factory SDKFactory) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a plugin secret",
		Long: `Fetch and decrypt a secret of the configured plugin.

Secrets are stored in Parameter Store under
  /micropress/plugins/<plugin-id>/<name>
By default only the raw value is printed, making it suitable for scripting.
Audit records are written to stderr.

Examples:
  micropress-plugin secret get api-key
  micropress-plugin secret get api-key --json
  export API_KEY=$(micropress-plugin secret get api-key)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := factory(ctx, cfg, auditToStderr(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			value, found, err := s.GetSecret(ctx, name)
			if err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Failed to fetch secret '%s'", name),
					Details:    err.Error(),
					Suggestion: "Check AWS credentials and the plugin's Parameter Store permissions",
					Err:        err,
				}
			}
			if !found {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Secret '%s' not found", name),
					Suggestion: fmt.Sprintf("Create it with: aws ssm put-parameter --type SecureString --name %s --value <value>", s.SecretPath(name)),
				}
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]string{
					"plugin": s.PluginID(),
					"name":   name,
					"path":   s.SecretPath(name),
					"value":  value,
				})
			}

			fmt.Fprint(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	return cmd
}
