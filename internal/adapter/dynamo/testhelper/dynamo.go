package testhelper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Table names created inside the shared dynamodb-local container.
const (
	VocabTable       = "vocab-test"
	ConnectionsTable = "connections-test"
)

var (
	once           sync.Once
	sharedEndpoint string
	initErr        error
)

// SetupTestTables starts a shared dynamodb-local container (once for the
// entire test run), creates the vocabulary and connections tables with their
// indexes, and returns a client connected to it. The container lives until
// the process exits. Tests sharing the container must write disjoint keys.
func SetupTestTables(t *testing.T) *dynamodb.Client {
	t.Helper()

	once.Do(func() {
		sharedEndpoint, initErr = startContainerAndCreateTables()
	})
	if initErr != nil {
		t.Skipf("testhelper: dynamodb-local unavailable: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := newClient(ctx, sharedEndpoint)
	if err != nil {
		t.Fatalf("testhelper: failed to create client: %v", err)
	}
	return client
}

func startContainerAndCreateTables() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:2.5.2",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
		WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "8000")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	client, err := newClient(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if err := createVocabTable(ctx, client); err != nil {
		return "", err
	}
	if err := createConnectionsTable(ctx, client); err != nil {
		return "", err
	}

	return endpoint, nil
}

func newClient(ctx context.Context, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

func createVocabTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(VocabTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("english_word"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String("english_word-index"),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("english_word"), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", VocabTable, err)
	}
	return waitForTable(ctx, client, VocabTable)
}

func createConnectionsTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(ConnectionsTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("connection_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("vocab_word"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("connection_id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String("vocab_word-index"),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("vocab_word"), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", ConnectionsTable, err)
	}
	return waitForTable(ctx, client, ConnectionsTable)
}

func waitForTable(ctx context.Context, client *dynamodb.Client, name string) error {
	waiter := dynamodb.NewTableExistsWaiter(client)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 30*time.Second)
	if err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}
	return nil
}
