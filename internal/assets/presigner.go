// Package assets signs download URLs for plugin assets stored in S3.
package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/awsclient"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignAPI defines the S3 presign operation used by Signer.
// This allows for mocking in tests
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Signer creates presigned GET URLs.
type Signer struct {
	client PresignAPI
}

// New creates a signer from an AWS config.
func New(cfg aws.Config, settings awsclient.Settings) *Signer {
	endpoint := settings.EndpointOverride()
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = true
		}
	})
	return NewWithClient(s3.NewPresignClient(client))
}

// NewWithClient creates a signer over client (for testing).
func NewWithClient(client PresignAPI) *Signer {
	return &Signer{client: client}
}

// PresignGet returns a URL granting GET access to bucket/key for ttl.
func (s *Signer) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("presign ttl must be positive, got %s", ttl)
	}

	req, err := s.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", dserrors.ServiceError("s3", "PresignGetObject", err)
	}
	return req.URL, nil
}
