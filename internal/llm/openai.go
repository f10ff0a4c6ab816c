package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// ResponsesClient is the subset of the OpenAI SDK the binding needs.
type ResponsesClient interface {
	New(ctx context.Context, params responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// OpenAIBinding drives GPT models through the Responses API with a structured
// output schema, so the model returns schema-shaped JSON as its output text.
type OpenAIBinding struct {
	client ResponsesClient
}

// NewOpenAIBinding constructs a binding over the real API.
func NewOpenAIBinding(apiKey string) *OpenAIBinding {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIBinding{client: &client.Responses}
}

// NewOpenAIBindingWithClient constructs a binding over a custom client.
func NewOpenAIBindingWithClient(client ResponsesClient) *OpenAIBinding {
	return &OpenAIBinding{client: client}
}

func (b *OpenAIBinding) Provider() Provider { return ProviderOpenAI }

func (b *OpenAIBinding) Generate(ctx context.Context, req Request) (RawResult, error) {
	inputItems := responses.ResponseInputParam{}
	inputItems = append(inputItems, responses.ResponseInputItemParamOfMessage(
		req.User, responses.EasyInputMessageRoleUser,
	))

	params := responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(req.Schema.Name, req.Schema.Doc),
		},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := b.client.New(ctx, params)
	if err != nil {
		if isOpenAIThrottle(err) {
			return RawResult{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return RawResult{}, fmt.Errorf("openai responses.new: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		return RawResult{}, fmt.Errorf("%w: empty output text (status %s)",
			domain.ErrProviderProtocol, resp.Status)
	}
	return RawResult{
		JSON:  []byte(text),
		Model: string(resp.Model),
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func isOpenAIThrottle(err error) bool {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return false
	}
	return apierr.StatusCode == http.StatusTooManyRequests ||
		apierr.StatusCode == http.StatusInternalServerError ||
		apierr.StatusCode == http.StatusServiceUnavailable
}