// Package connection persists live WebSocket subscriptions: which
// connection wants updates for which vocabulary word.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo"
)

// SubscriberIndex is the GSI projecting connections by watched word.
const SubscriberIndex = "vocab_word-index"

// Client is the part of the DynamoDB API the repository uses.
type Client interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Item is one live connection and the word it watches.
type Item struct {
	ConnectionID     string    `dynamodbav:"connection_id"`
	VocabWord        string    `dynamodbav:"vocab_word"`
	LastSubscription time.Time `dynamodbav:"last_subscription"`
}

type Repo struct {
	client Client
	table  string
	log    *slog.Logger
}

func New(client Client, table string, logger *slog.Logger) *Repo {
	return &Repo{
		client: client,
		table:  table,
		log:    logger.With("adapter", "dynamo.connection"),
	}
}

// Subscribe records that connectionID wants updates for vocabWord. A repeat
// subscribe from the same connection overwrites the previous word.
func (r *Repo) Subscribe(ctx context.Context, connectionID, vocabWord string) error {
	item, err := attributevalue.MarshalMap(Item{
		ConnectionID:     connectionID,
		VocabWord:        vocabWord,
		LastSubscription: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("subscription %s: marshal: %w", connectionID, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return dynamo.MapError(err, "subscription", connectionID)
	}

	r.log.DebugContext(ctx, "subscription stored",
		"connection_id", connectionID,
		"vocab_word", vocabWord)
	return nil
}

// ListSubscribers returns the IDs of every connection watching vocabWord.
func (r *Repo) ListSubscribers(ctx context.Context, vocabWord string) ([]string, error) {
	var (
		ids  []string
		from map[string]types.AttributeValue
	)
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			IndexName:              aws.String(SubscriberIndex),
			KeyConditionExpression: aws.String("#vw = :vw"),
			ExpressionAttributeNames: map[string]string{
				"#vw":  "vocab_word",
				"#cid": "connection_id",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":vw": &types.AttributeValueMemberS{Value: vocabWord},
			},
			ProjectionExpression: aws.String("#cid"),
			ExclusiveStartKey:    from,
		})
		if err != nil {
			return nil, dynamo.MapError(err, "subscribers", vocabWord)
		}

		for _, raw := range out.Items {
			var row Item
			if err := attributevalue.UnmarshalMap(raw, &row); err != nil {
				return nil, fmt.Errorf("subscribers %s: unmarshal: %w", vocabWord, err)
			}
			if row.ConnectionID != "" {
				ids = append(ids, row.ConnectionID)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		from = out.LastEvaluatedKey
	}
}

// Delete drops the subscription row for a connection. Deleting an unknown
// connection is not an error.
func (r *Repo) Delete(ctx context.Context, connectionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"connection_id": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return dynamo.MapError(err, "subscription", connectionID)
	}
	return nil
}
