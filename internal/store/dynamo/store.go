// Package dynamo implements the plugin SDK data store on a single DynamoDB
// table keyed by entityType (partition) and id (sort).
package dynamo

import (
	"context"
	"fmt"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/awsclient"
	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key attribute names.
const (
	AttrEntityType = "entityType"
	AttrID         = "id"
)

// DynamoDBClientAPI defines the DynamoDB operations used by Store.
// This allows for mocking in tests
type DynamoDBClientAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store reads and writes items in one table.
type Store struct {
	client DynamoDBClientAPI
	table  string
}

// New creates a store for table using an AWS config.
func New(cfg aws.Config, settings awsclient.Settings, table string) *Store {
	endpoint := settings.EndpointOverride()
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
	return NewWithClient(client, table)
}

// NewWithClient creates a store over client (for testing).
func NewWithClient(client DynamoDBClientAPI, table string) *Store {
	return &Store{client: client, table: table}
}

func key(entityType, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrEntityType: &types.AttributeValueMemberS{Value: entityType},
		AttrID:         &types.AttributeValueMemberS{Value: id},
	}
}

// Get returns the item stored under (entityType, id), including its key
// attributes.
func (s *Store) Get(ctx context.Context, entityType, id string) (map[string]any, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(entityType, id),
	})
	if err != nil {
		return nil, false, dserrors.ServiceError("dynamodb", "GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to decode item %s/%s: %w", entityType, id, err)
	}
	return item, true, nil
}

// Put writes item under (entityType, id), replacing any existing item.
func (s *Store) Put(ctx context.Context, entityType, id string, item map[string]any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %s/%s: %w", entityType, id, err)
	}
	for k, v := range key(entityType, id) {
		av[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return dserrors.ServiceError("dynamodb", "PutItem", err)
	}
	return nil
}

// Delete removes (entityType, id).
func (s *Store) Delete(ctx context.Context, entityType, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(entityType, id),
	})
	if err != nil {
		return dserrors.ServiceError("dynamodb", "DeleteItem", err)
	}
	return nil
}

// ListIDs returns every id of entityType that begins with idPrefix, across
// all result pages.
func (s *Store) ListIDs(ctx context.Context, entityType, idPrefix string) ([]string, error) {
	values, err := attributevalue.MarshalMap(map[string]string{
		":type":   entityType,
		":prefix": idPrefix,
	})
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String("entityType = :type AND begins_with(id, :prefix)"),
		ExpressionAttributeValues: values,
		ProjectionExpression:      aws.String(AttrID),
	})

	ids := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dserrors.ServiceError("dynamodb", "Query", err)
		}
		for _, item := range page.Items {
			var id string
			if err := attributevalue.Unmarshal(item[AttrID], &id); err != nil {
				return nil, fmt.Errorf("failed to decode id: %w", err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
