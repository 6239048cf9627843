package secrets

import (
	"context"
	"errors"
	"strings"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/awsclient"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
)

// SSMClientAPI defines the SSM Parameter Store operations used here.
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore reads plugin secrets from AWS Systems Manager Parameter
// Store.
type ParameterStore struct {
	client SSMClientAPI
	logger *logging.Logger
}

// Option configures a ParameterStore.
type Option func(*ParameterStore)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) Option {
	return func(p *ParameterStore) {
		p.client = client
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *ParameterStore) {
		p.logger = l
	}
}

// NewParameterStore creates a parameter store from an AWS config.
func NewParameterStore(cfg aws.Config, settings awsclient.Settings, opts ...Option) *ParameterStore {
	p := &ParameterStore{
		logger: logging.New(false, true),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		endpoint := settings.EndpointOverride()
		p.client = ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			if endpoint != nil {
				o.BaseEndpoint = endpoint
			}
		})
	}
	return p
}

// NewParameterStoreWithClient creates a parameter store over client.
func NewParameterStoreWithClient(client SSMClientAPI, opts ...Option) *ParameterStore {
	return NewParameterStore(aws.Config{}, awsclient.Settings{}, append([]Option{WithSSMClient(client)}, opts...)...)
}

// GetParameter fetches name. A missing parameter yields found=false and a
// nil error.
func (p *ParameterStore) GetParameter(ctx context.Context, name string, withDecryption bool) (string, bool, error) {
	p.logger.Debug("Fetching parameter from SSM: %s", name)

	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(withDecryption),
	})
	if err != nil {
		if isParameterNotFoundError(err) {
			return "", false, nil
		}
		return "", false, dserrors.ServiceError("ssm", "GetParameter", err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", false, nil
	}
	return *result.Parameter.Value, true, nil
}

// isParameterNotFoundError checks if the error is a parameter not found error
func isParameterNotFoundError(err error) bool {
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ParameterNotFound" {
		return true
	}
	return strings.Contains(err.Error(), "ParameterNotFound")
}
