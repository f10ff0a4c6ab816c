package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// ConverseClient is the subset of the Bedrock runtime client the binding
// needs. It matches *bedrockruntime.Client.
type ConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBinding drives Bedrock-hosted models through the Converse API with
// forced tool use, the same contract the Anthropic binding relies on. It
// carries no credentials of its own; the AWS client brings them.
type BedrockBinding struct {
	client ConverseClient
}

// NewBedrockBinding constructs a binding over a Bedrock runtime client.
func NewBedrockBinding(client ConverseClient) *BedrockBinding {
	return &BedrockBinding{client: client}
}

func (b *BedrockBinding) Provider() Provider { return ProviderBedrock }

func (b *BedrockBinding) Generate(ctx context.Context, req Request) (RawResult, error) {
	spec := brtypes.ToolSpecification{
		Name:        aws.String(req.Schema.Name),
		InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: lazyDocument(req.Schema.Doc)},
	}
	if req.Schema.Description != "" {
		spec.Description = aws.String(req.Schema.Description)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.User}},
		}},
		ToolConfig: &brtypes.ToolConfiguration{
			Tools: []brtypes.Tool{&brtypes.ToolMemberToolSpec{Value: spec}},
			ToolChoice: &brtypes.ToolChoiceMemberTool{
				Value: brtypes.SpecificToolChoice{Name: aws.String(req.Schema.Name)},
			},
		},
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}
	}
	cfg := brtypes.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
	if req.Temperature != nil {
		cfg.Temperature = aws.Float32(float32(*req.Temperature))
	}
	input.InferenceConfig = &cfg

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		if isBedrockThrottle(err) {
			return RawResult{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return RawResult{}, fmt.Errorf("bedrock converse: %w", err)
	}

	if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			use, ok := block.(*brtypes.ContentBlockMemberToolUse)
			if !ok || use.Value.Name == nil || *use.Value.Name != req.Schema.Name {
				continue
			}
			if use.Value.Input == nil {
				return RawResult{}, fmt.Errorf("%w: toolUse block has no input", domain.ErrProviderProtocol)
			}
			payload, err := use.Value.Input.MarshalSmithyDocument()
			if err != nil {
				return RawResult{}, fmt.Errorf("%w: decode toolUse input: %v", domain.ErrProviderProtocol, err)
			}
			result := RawResult{JSON: payload, Model: req.Model}
			if usage := out.Usage; usage != nil {
				result.Usage = Usage{
					PromptTokens:     int64(aws.ToInt32(usage.InputTokens)),
					CompletionTokens: int64(aws.ToInt32(usage.OutputTokens)),
				}
			}
			return result, nil
		}
	}
	return RawResult{}, fmt.Errorf("%w: no %s toolUse block (stop_reason %s)",
		domain.ErrProviderProtocol, req.Schema.Name, out.StopReason)
}

func lazyDocument(v any) document.Interface {
	return document.NewLazyDocument(&v)
}

func isBedrockThrottle(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceUnavailableException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusTooManyRequests
}