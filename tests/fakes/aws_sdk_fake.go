package fakes

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FakeSSMClient is a mock implementation of the SSM GetParameter API
type FakeSSMClient struct {
	mu sync.Mutex
	// Parameters maps parameter names to their values
	Parameters map[string]string
	// Errors maps parameter names to errors to return
	Errors map[string]error
	// GetParameterFunc allows custom behavior for GetParameter
	GetParameterFunc func(ctx context.Context, params *ssm.GetParameterInput) (*ssm.GetParameterOutput, error)
	// Calls records every GetParameter input
	Calls []ssm.GetParameterInput
}

// NewFakeSSMClient creates a new mock SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]string),
		Errors:     make(map[string]error),
	}
}

// AddSecureStringParameter adds a SecureString parameter to the mock client
func (f *FakeSSMClient) AddSecureStringParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Parameters[name] = value
}

// AddError configures the mock to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter mocks the GetParameter operation
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, *params)
	fn := f.GetParameterFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	paramName := aws.ToString(params.Name)

	// Check for configured errors
	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}

	value, exists := f.Parameters[paramName]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
		}
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    params.Name,
			Type:    ssmtypes.ParameterTypeSecureString,
			Value:   aws.String(value),
			Version: 1,
			ARN:     aws.String(fmt.Sprintf("arn:aws:ssm:us-east-1:123456789012:parameter%s", paramName)),
		},
	}, nil
}

// FakeDynamoDBClient is an in-memory mock of the DynamoDB item and query
// APIs for a table keyed by entityType and id.
type FakeDynamoDBClient struct {
	mu sync.Mutex
	// Items maps table name to "entityType\x00id" to the stored item
	Items map[string]map[string]map[string]ddbtypes.AttributeValue
	// Err, when set, is returned by every operation
	Err error
	// PageSize limits Query results per page (0 = unlimited)
	PageSize int
	// QueryCalls counts Query invocations
	QueryCalls int
}

// NewFakeDynamoDBClient creates a new mock DynamoDB client
func NewFakeDynamoDBClient() *FakeDynamoDBClient {
	return &FakeDynamoDBClient{
		Items: make(map[string]map[string]map[string]ddbtypes.AttributeValue),
	}
}

func stringAttr(av ddbtypes.AttributeValue) string {
	if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func itemKey(key map[string]ddbtypes.AttributeValue) string {
	return stringAttr(key["entityType"]) + "\x00" + stringAttr(key["id"])
}

// GetItem mocks the GetItem operation
func (f *FakeDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	table := f.Items[aws.ToString(params.TableName)]
	item, ok := table[itemKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

// PutItem mocks the PutItem operation
func (f *FakeDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	tableName := aws.ToString(params.TableName)
	if f.Items[tableName] == nil {
		f.Items[tableName] = make(map[string]map[string]ddbtypes.AttributeValue)
	}
	f.Items[tableName][itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem mocks the DeleteItem operation
func (f *FakeDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	delete(f.Items[aws.ToString(params.TableName)], itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query supports "entityType = :type AND begins_with(id, :prefix)" key
// conditions, returning items ordered by id.
func (f *FakeDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.QueryCalls++
	if f.Err != nil {
		return nil, f.Err
	}

	entityType := stringAttr(params.ExpressionAttributeValues[":type"])
	prefix := stringAttr(params.ExpressionAttributeValues[":prefix"])
	startAfter := ""
	if params.ExclusiveStartKey != nil {
		startAfter = stringAttr(params.ExclusiveStartKey["id"])
	}

	var matches []map[string]ddbtypes.AttributeValue
	for _, item := range f.Items[aws.ToString(params.TableName)] {
		id := stringAttr(item["id"])
		if stringAttr(item["entityType"]) != entityType || !strings.HasPrefix(id, prefix) {
			continue
		}
		if startAfter != "" && id <= startAfter {
			continue
		}
		matches = append(matches, item)
	}
	sort.Slice(matches, func(i, j int) bool {
		return stringAttr(matches[i]["id"]) < stringAttr(matches[j]["id"])
	})

	out := &dynamodb.QueryOutput{}
	if f.PageSize > 0 && len(matches) > f.PageSize {
		matches = matches[:f.PageSize]
		last := matches[len(matches)-1]
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
			"entityType": last["entityType"],
			"id":         last["id"],
		}
	}
	out.Items = matches
	out.Count = int32(len(matches))
	return out, nil
}

// FakePresignClient is a mock of the S3 presign API
type FakePresignClient struct {
	// Err, when set, is returned by PresignGetObject
	Err error
	// LastExpires records the expiry requested by the last call
	LastExpires time.Duration
}

// PresignGetObject returns a deterministic fake URL
func (f *FakePresignClient) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.LastExpires = opts.Expires

	u := url.URL{
		Scheme:   "https",
		Host:     aws.ToString(params.Bucket) + ".s3.amazonaws.com",
		Path:     "/" + aws.ToString(params.Key),
		RawQuery: fmt.Sprintf("X-Amz-Expires=%d", int(opts.Expires.Seconds())),
	}
	return &v4.PresignedHTTPRequest{URL: u.String(), Method: "GET"}, nil
}
