package extractor

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// OpenAIExtractor calls the chat completions endpoint directly through the
// OpenAI SDK. It is the lighter backend and skips the graph runtime.
type OpenAIExtractor struct {
	client      *openaisdk.Client
	model       string
	directive   string
	maxTokens   int64
	temperature float64
}

var _ contractx.ProfileExtractor = (*OpenAIExtractor)(nil)

func NewOpenAI(client *openaisdk.Client, model, directive string, maxTokens int, temperature float32) (*OpenAIExtractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrConfig)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrConfig)
	}
	return &OpenAIExtractor{
		client:      client,
		model:       strings.TrimSpace(model),
		directive:   directive,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, req contractx.ExtractRequest) (contractx.ProfileFields, error) {
	text, imageURL, err := prepare(req, e.directive)
	if err != nil {
		return contractx.ProfileFields{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(e.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(text),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
		Temperature: openaisdk.Float(e.temperature),
	}
	if e.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(e.maxTokens)
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return contractx.ProfileFields{}, ctxErr
		}
		return contractx.ProfileFields{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return contractx.ProfileFields{}, fmt.Errorf("%w: no choices in response", contractx.ErrSchemaViolation)
	}
	return ParseProfile(resp.Choices[0].Message.Content)
}
