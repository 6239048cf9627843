package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/sdk"
	"github.com/spf13/cobra"
)

// NewFetchCommand creates the fetch command, which sends one request through
// the outbound HTTP governor.
func NewFetchCommand(cfg *config.Config, factory SDKFactory) *cobra.Command {
	var (
		method   string
		headers  []string
		data     string
		include  bool
		pluginID string
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send a governed HTTP request as the plugin",
		Long: `Send an HTTP request the way a plugin would, through the SDK governor.

Requests to internal hosts (localhost, 127.0.0.1, 0.0.0.0, ::1, 10.*,
192.168.*, 172.16.*) are refused, and each host is limited to a fixed number
of requests per window. Use this to check whether a plugin's outbound call
is allowed. Audit records are written to stderr.

Examples:
  micropress-plugin fetch https://api.example.com/status
  micropress-plugin fetch https://api.example.com/items -X POST -H 'Content-Type: application/json' -d '{"name":"x"}'
  micropress-plugin fetch --plugin weather-widget http://localhost:8080/  # refused`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				if pluginID == "" {
					return err
				}
				cfg.Definition = &config.Definition{Plugin: config.PluginConfig{ID: pluginID}}
			} else if pluginID != "" {
				cfg.Definition.Plugin.ID = pluginID
			}

			header, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := factory(ctx, cfg, auditToStderr(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			opts := &sdk.RequestOptions{Method: method, Header: header}
			if data != "" {
				opts.Body = strings.NewReader(data)
			}

			resp, err := s.HTTPRequest(ctx, args[0], opts)
			if err != nil {
				return explainRequestError(err)
			}
			defer resp.Body.Close()

			out := cmd.OutOrStdout()
			if include {
				fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
				keys := make([]string, 0, len(resp.Header))
				for k := range resp.Header {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "%s: %s\n", k, strings.Join(resp.Header[k], ", "))
				}
				fmt.Fprintln(out)
			}

			if _, err := io.Copy(out, resp.Body); err != nil {
				return explainRequestError(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print the status line and response headers")
	cmd.Flags().StringVar(&pluginID, "plugin", "", "Plugin id (overrides the config file)")

	return cmd
}

func parseHeaders(raw []string) (http.Header, error) {
	header := http.Header{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Invalid header %q", h),
				Suggestion: "Use -H 'Name: value'",
			}
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return header, nil
}

func explainRequestError(err error) error {
	var (
		invalid   *sdk.InvalidRequestError
		forbidden *sdk.ForbiddenHostError
		limited   *sdk.RateLimitExceededError
		timeout   *sdk.RequestTimeoutError
	)

	switch {
	case errors.As(err, &invalid):
		return dserrors.UserError{
			Message:    "Invalid request URL",
			Details:    err.Error(),
			Suggestion: "Use an absolute http:// or https:// URL",
			Err:        err,
		}
	case errors.As(err, &forbidden):
		return dserrors.UserError{
			Message:    fmt.Sprintf("Requests to %s are not allowed", forbidden.Host),
			Suggestion: "Plugins may not call localhost or private network addresses. Use a public endpoint",
			Err:        err,
		}
	case errors.As(err, &limited):
		return dserrors.UserError{
			Message:    fmt.Sprintf("Rate limit of %d requests exceeded for %s", limited.Limit, limited.Host),
			Suggestion: fmt.Sprintf("Retry after %s", limited.ResetAt.Format(time.RFC3339)),
			Err:        err,
		}
	case errors.As(err, &timeout):
		return dserrors.UserError{
			Message:    fmt.Sprintf("Request timed out after %s", timeout.Timeout),
			Suggestion: "Raise http.timeout_ms in the config file or check that the host responds",
			Err:        err,
		}
	}
	return dserrors.SimplifyError(err)
}
