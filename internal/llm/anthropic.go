package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// MessagesClient is the subset of the Anthropic SDK the binding needs.
type MessagesClient interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicBinding drives Claude models through forced tool use: the response
// schema becomes the only permitted tool and the model must invoke it, which
// yields schema-shaped JSON without free-text framing.
type AnthropicBinding struct {
	client MessagesClient
}

// NewAnthropicBinding constructs a binding over the real API.
func NewAnthropicBinding(apiKey string) *AnthropicBinding {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicBinding{client: &client.Messages}
}

// NewAnthropicBindingWithClient constructs a binding over a custom client.
func NewAnthropicBindingWithClient(client MessagesClient) *AnthropicBinding {
	return &AnthropicBinding{client: client}
}

func (b *AnthropicBinding) Provider() Provider { return ProviderAnthropic }

func (b *AnthropicBinding) Generate(ctx context.Context, req Request) (RawResult, error) {
	tool := sdk.ToolUnionParamOfTool(
		sdk.ToolInputSchemaParam{ExtraFields: req.Schema.InputFields()},
		req.Schema.Name,
	)
	if req.Schema.Description != "" && tool.OfTool != nil {
		tool.OfTool.Description = sdk.String(req.Schema.Description)
	}

	params := sdk.MessageNewParams{
		Model:      sdk.Model(req.Model),
		MaxTokens:  int64(req.MaxTokens),
		Messages:   []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
		Tools:      []sdk.ToolUnionParam{tool},
		ToolChoice: sdk.ToolChoiceParamOfTool(req.Schema.Name),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := b.client.New(ctx, params)
	if err != nil {
		if isAnthropicThrottle(err) {
			return RawResult{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return RawResult{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == req.Schema.Name {
			return RawResult{
				JSON:  []byte(block.Input),
				Model: string(msg.Model),
				Usage: Usage{
					PromptTokens:     msg.Usage.InputTokens,
					CompletionTokens: msg.Usage.OutputTokens,
				},
			}, nil
		}
	}
	return RawResult{}, fmt.Errorf("%w: no %s tool_use block (stop_reason %s)",
		domain.ErrProviderProtocol, req.Schema.Name, msg.StopReason)
}

func isAnthropicThrottle(err error) bool {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return false
	}
	return apierr.StatusCode == http.StatusTooManyRequests ||
		apierr.StatusCode == http.StatusServiceUnavailable ||
		apierr.StatusCode == 529
}
