package sdk

import (
	"context"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/assets"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/awsclient"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/secrets"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/store/dynamo"
)

// AWSOptions selects AWS credentials and endpoints for NewAWS.
type AWSOptions struct {
	Profile         string
	Endpoint        string
	AssumeRole      string
	AccessKeyID     string
	SecretAccessKey string
}

// NewAWS loads the AWS configuration and creates an SDK backed by DynamoDB
// (cfg.TableName), Parameter Store and, when cfg.AssetBucket is set, S3.
// opts are applied after the AWS collaborators and may override them.
func NewAWS(ctx context.Context, cfg Config, awsOpts AWSOptions, opts ...Option) (*SDK, error) {
	if err := validatePluginID(cfg.PluginID); err != nil {
		return nil, err
	}
	if cfg.TableName == "" {
		return nil, dserrors.ConfigError{
			Field:      "tableName",
			Message:    "data table name is required",
			Suggestion: "Set data.table in the config file or MICROPRESS_TABLE",
		}
	}

	settings := awsclient.Settings{
		Region:          cfg.Region,
		Profile:         awsOpts.Profile,
		Endpoint:        awsOpts.Endpoint,
		AssumeRole:      awsOpts.AssumeRole,
		RoleSessionName: "micropress-plugin-" + cfg.PluginID,
		AccessKeyID:     awsOpts.AccessKeyID,
		SecretAccessKey: awsOpts.SecretAccessKey,
	}
	awsCfg, err := awsclient.Load(ctx, settings)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to load AWS configuration",
			Details:    err.Error(),
			Suggestion: "Check AWS credentials, region and profile",
			Err:        err,
		}
	}

	base := []Option{
		WithDataStore(dynamo.New(awsCfg, settings, cfg.TableName)),
		WithSecretStore(secrets.NewParameterStore(awsCfg, settings)),
	}
	if cfg.AssetBucket != "" {
		base = append(base, WithAssetSigner(assets.New(awsCfg, settings)))
	}

	return New(cfg, append(base, opts...)...)
}
