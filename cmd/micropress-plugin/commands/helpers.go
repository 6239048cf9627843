package commands

import (
	"context"
	"io"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/config"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/audit"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/sdk"
)

// SDKFactory builds the plugin SDK for a loaded configuration. opts are
// applied last.
type SDKFactory func(ctx context.Context, cfg *config.Config, opts ...sdk.Option) (*sdk.SDK, error)

// AWSFactory builds an SDK backed by DynamoDB, Parameter Store and S3.
func AWSFactory(ctx context.Context, cfg *config.Config, opts ...sdk.Option) (*sdk.SDK, error) {
	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		return nil, err
	}
	return sdk.NewAWS(ctx, sdkCfg, cfg.AWSOptions(), opts...)
}

// LocalFactory builds an SDK without AWS collaborators.
func LocalFactory(_ context.Context, cfg *config.Config, opts ...sdk.Option) (*sdk.SDK, error) {
	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		return nil, err
	}
	return sdk.New(sdkCfg, opts...)
}

// auditToStderr keeps audit records off stdout so command output stays
// scriptable.
func auditToStderr(w io.Writer) sdk.Option {
	return sdk.WithAuditSink(&audit.WriterSink{Out: w, Err: w})
}

func loggerOf(cfg *config.Config) *logging.Logger {
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	return cfg.Logger
}
