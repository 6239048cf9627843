// Package awsclient loads the shared AWS configuration used by the data,
// secret and asset collaborators.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Settings selects how AWS credentials and endpoints are resolved.
type Settings struct {
	Region  string
	Profile string
	// Endpoint overrides the service endpoint (LocalStack, DynamoDB Local).
	Endpoint string
	// AssumeRole is a role ARN assumed on top of the base credentials.
	AssumeRole      string
	RoleSessionName string
	// Static credentials for local testing.
	AccessKeyID     string
	SecretAccessKey string
}

// Load builds an aws.Config from s.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error

	if s.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(s.Region))
	}
	if s.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(s.Profile))
	}

	// Use static credentials if provided (for LocalStack/testing)
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s.AssumeRole != "" {
		sessionName := s.RoleSessionName
		if sessionName == "" {
			sessionName = "micropress-plugin"
		}
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), s.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = sessionName
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return cfg, nil
}

// EndpointOverride returns a pointer suitable for a client's BaseEndpoint
// option, or nil when no override is configured.
func (s Settings) EndpointOverride() *string {
	if s.Endpoint == "" {
		return nil
	}
	return aws.String(s.Endpoint)
}
