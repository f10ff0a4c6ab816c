// Package sqs receives enrichment requests from the intake queue.
package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// API is the part of the SQS client the consumer uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
}

// Message is one received queue record.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// Consumer long-polls one queue. Visibility is asserted on every receive so
// a record stays hidden for the whole processing budget.
type Consumer struct {
	api        API
	queueURL   string
	visibility int32
	wait       int32
	batch      int32
	log        *slog.Logger
}

func NewConsumer(api API, queueURL string, visibility, wait time.Duration, batch int, logger *slog.Logger) *Consumer {
	if batch < 1 {
		batch = 1
	}
	if batch > 10 {
		batch = 10 // SQS receive ceiling
	}
	return &Consumer{
		api:        api,
		queueURL:   queueURL,
		visibility: int32(visibility / time.Second),
		wait:       int32(wait / time.Second),
		batch:      int32(batch),
		log:        logger.With("adapter", "sqs"),
	}
}

// Receive long-polls for the next batch of records. An empty slice means the
// poll timed out with nothing to do.
func (c *Consumer) Receive(ctx context.Context) ([]Message, error) {
	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.batch,
		VisibilityTimeout:   c.visibility,
		WaitTimeSeconds:     c.wait,
	})
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		})
	}
	if len(msgs) > 0 {
		c.log.DebugContext(ctx, "messages received", "count", len(msgs))
	}
	return msgs, nil
}

// Delete acknowledges a processed record so the queue never redelivers it.
func (c *Consumer) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
