package awsclient_test

import (
	"context"
	"testing"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/awsclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithStaticCredentials(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent/credentials")

	cfg, err := awsclient.Load(context.Background(), awsclient.Settings{
		Region:          "eu-central-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "eu-central-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}

func TestEndpointOverride(t *testing.T) {
	t.Parallel()

	assert.Nil(t, awsclient.Settings{}.EndpointOverride())

	ep := awsclient.Settings{Endpoint: "http://localhost:4566"}.EndpointOverride()
	require.NotNil(t, ep)
	assert.Equal(t, "http://localhost:4566", *ep)
}
