package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentModification is returned when another publisher committed
// the same version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// ErrNoVersion is returned by Latest before the first commit.
var ErrNoVersion = errors.New("no matrix committed")

// DDBClient is the subset of the DynamoDB API used by Registry.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Registry records which matrix is the latest for a namespace.
//
// Each commit is a new item with a monotonically increasing version, written
// with a conditional put, so two publishers racing on the same version
// cannot both succeed.
//
// Table schema:
//   - Partition key: base_uri (string)
//   - Sort key: version (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name corrmatrix-registry \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Registry struct {
	client    DDBClient
	table     string
	namespace string
	now       func() time.Time
}

// NewRegistry returns a Registry for namespace, typically "s3://bucket/prefix".
func NewRegistry(client DDBClient, table, namespace string) *Registry {
	return &Registry{
		client:    client,
		table:     table,
		namespace: namespace,
		now:       time.Now,
	}
}

// NewRegistryFromConfig creates a Registry with a DynamoDB client built
// from cfg.
func NewRegistryFromConfig(cfg aws.Config, table, namespace string) *Registry {
	return NewRegistry(dynamodb.NewFromConfig(cfg), table, namespace)
}

// Latest returns the most recently committed matrix name.
func (r *Registry) Latest(ctx context.Context) (uint64, string, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: r.namespace},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", ErrNoVersion
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	nameAttr, ok := item["matrix_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid matrix_name attribute in DynamoDB")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}
	return version, nameAttr.Value, nil
}

// Commit makes name the latest matrix and returns its version.
func (r *Registry) Commit(ctx context.Context, name string) (uint64, error) {
	current, _, err := r.Latest(ctx)
	if err != nil && !errors.Is(err, ErrNoVersion) {
		return 0, err
	}
	next := current + 1

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			"base_uri":     &types.AttributeValueMemberS{Value: r.namespace},
			"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"matrix_name":  &types.AttributeValueMemberS{Value: name},
			"committed_at": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return next, nil
}
