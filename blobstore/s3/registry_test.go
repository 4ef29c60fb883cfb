package s3

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue // base_uri:version -> item

	// beforePut runs with the lock released, before the item is written.
	beforePut func()
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.beforePut != nil {
		m.beforePut()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	sort.Slice(items, func(i, j int) bool {
		if aws.ToBool(params.ScanIndexForward) {
			return version(items[i]) < version(items[j])
		}
		return version(items[i]) > version(items[j])
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry(newMockDDBClient(), "registry", "s3://bucket/matrices")

	_, _, err := r.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoVersion)
}

func TestRegistry_Commit(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	r := NewRegistry(client, "registry", "s3://bucket/matrices")
	r.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	v, err := r.Commit(ctx, "sim-1.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	v, err = r.Commit(ctx, "sim-2.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	// Versions 10+ must sort numerically, not lexically.
	for i := 3; i <= 11; i++ {
		_, err = r.Commit(ctx, "sim-"+strconv.Itoa(i)+".csv")
		require.NoError(t, err)
	}

	version, name, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), version)
	assert.Equal(t, "sim-11.csv", name)

	item := client.items["s3://bucket/matrices:1"]
	require.NotNil(t, item)
	assert.Equal(t, "2024-03-01T12:00:00Z", item["committed_at"].(*types.AttributeValueMemberS).Value)
}

func TestRegistry_NamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	a := NewRegistry(client, "registry", "s3://bucket/a")
	b := NewRegistry(client, "registry", "s3://bucket/b")

	_, err := a.Commit(ctx, "a.csv")
	require.NoError(t, err)
	_, err = a.Commit(ctx, "a2.csv")
	require.NoError(t, err)

	v, err := b.Commit(ctx, "b.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestRegistry_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	r := NewRegistry(client, "registry", "s3://bucket/matrices")

	// Another publisher wins version 1 between our Latest and PutItem.
	other := NewRegistry(client, "registry", "s3://bucket/matrices")
	var once sync.Once
	client.beforePut = func() {
		once.Do(func() {
			client.beforePut = nil
			_, err := other.Commit(ctx, "winner.csv")
			require.NoError(t, err)
		})
	}

	_, err := r.Commit(ctx, "loser.csv")
	assert.ErrorIs(t, err, ErrConcurrentModification)

	_, name, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "winner.csv", name)
}

type failingDDBClient struct{}

func (failingDDBClient) PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return nil, errors.New("throttled")
}

func (failingDDBClient) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return nil, errors.New("throttled")
}

func TestRegistry_QueryError(t *testing.T) {
	r := NewRegistry(failingDDBClient{}, "registry", "s3://bucket/matrices")

	_, err := r.Commit(context.Background(), "x.csv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoVersion)
	assert.Contains(t, err.Error(), "throttled")
}
