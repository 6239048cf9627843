package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/secrets"
	"github.com/JWThewes/MicroPress-Plugin-SDK/tests/fakes"
	"github.com/JWThewes/MicroPress-Plugin-SDK/tests/testutil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterStoreFound(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeSSMClient()
	fake.AddSecureStringParameter("/micropress/plugins/archive/token", "s3cr3t")
	store := secrets.NewParameterStoreWithClient(fake)

	value, found, err := store.GetParameter(context.Background(), "/micropress/plugins/archive/token", true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "s3cr3t", value)

	require.Len(t, fake.Calls, 1)
	assert.True(t, aws.ToBool(fake.Calls[0].WithDecryption))
}

func TestParameterStoreNotFound(t *testing.T) {
	t.Parallel()

	store := secrets.NewParameterStoreWithClient(fakes.NewFakeSSMClient())

	value, found, err := store.GetParameter(context.Background(), "/missing", true)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestParameterStoreNotFoundByMessage(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeSSMClient()
	fake.AddError("/wrapped", errors.New("operation error SSM: GetParameter, ParameterNotFound: "))
	store := secrets.NewParameterStoreWithClient(fake)

	_, found, err := store.GetParameter(context.Background(), "/wrapped", true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParameterStoreNilValue(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeSSMClient()
	fake.GetParameterFunc = func(ctx context.Context, params *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
		return &ssm.GetParameterOutput{}, nil
	}
	store := secrets.NewParameterStoreWithClient(fake)

	_, found, err := store.GetParameter(context.Background(), "/x", true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParameterStoreFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("AccessDeniedException: not authorized")
	fake := fakes.NewFakeSSMClient()
	fake.AddError("/denied", cause)
	store := secrets.NewParameterStoreWithClient(fake)

	_, found, err := store.GetParameter(context.Background(), "/denied", true)
	require.Error(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ssm:GetParameter")
}

func TestParameterStoreLogsPathNotValue(t *testing.T) {
	t.Parallel()

	logger := testutil.NewTestLogger(t, true)
	fake := fakes.NewFakeSSMClient()
	fake.AddSecureStringParameter("/micropress/plugins/archive/token", "s3cr3t")
	store := secrets.NewParameterStoreWithClient(fake, secrets.WithLogger(logger.Logger))

	_, _, err := store.GetParameter(context.Background(), "/micropress/plugins/archive/token", true)
	require.NoError(t, err)

	logger.AssertNotContains(t, "s3cr3t")
	logger.AssertContains(t, "Fetching parameter from SSM: /micropress/plugins/archive/token")
	logger.AssertLogCount(t, "debug", 1)
}

func TestParameterStoreNotFoundByErrorCode(t *testing.T) {
	t.Parallel()

	fake := fakes.NewFakeSSMClient()
	fake.AddError("/coded", &smithy.GenericAPIError{Code: "ParameterNotFound", Message: "parameter does not exist"})
	store := secrets.NewParameterStoreWithClient(fake)

	_, found, err := store.GetParameter(context.Background(), "/coded", true)
	require.NoError(t, err)
	assert.False(t, found)
}
