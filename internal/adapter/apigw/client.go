// Package apigw posts JSON payloads to live WebSocket connections through
// the API Gateway management API.
package apigw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// API is the part of the management client the adapter uses.
type API interface {
	PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

type Client struct {
	api API
	log *slog.Logger
}

func New(api API, logger *slog.Logger) *Client {
	return &Client{api: api, log: logger.With("adapter", "apigw")}
}

// NewFromEndpoint builds a client for a WebSocket stage endpoint, accepting
// both the wss:// form clients connect to and the https:// management form.
func NewFromEndpoint(cfg aws.Config, endpoint string, logger *slog.Logger) *Client {
	api := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(managementEndpoint(endpoint))
	})
	return New(api, logger)
}

func managementEndpoint(endpoint string) string {
	if rest, ok := strings.CutPrefix(endpoint, "wss://"); ok {
		return "https://" + rest
	}
	return endpoint
}

// Post sends payload to one connection. A connection that has gone away maps
// to domain.ErrNotFound so the caller can prune its subscription.
func (c *Client) Post(ctx context.Context, connectionID string, payload []byte) error {
	_, err := c.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err != nil {
		var gone *types.GoneException
		if errors.As(err, &gone) {
			return fmt.Errorf("connection %s: %w", connectionID, domain.ErrNotFound)
		}
		return fmt.Errorf("connection %s: %w", connectionID, err)
	}
	return nil
}
