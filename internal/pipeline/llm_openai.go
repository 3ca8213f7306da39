package pipeline

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// generationTemperature is fixed low to reduce creative drift.
const generationTemperature = 0.2

// OpenAILLM implements LLMClient using the official openai-go SDK
// (chat completions with a JSON object response format).
type OpenAILLM struct {
	model string
	opts  []option.RequestOption
}

func NewOpenAILLM(apiKey, baseURL, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("openai chat model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAILLM{model: model, opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	client := openai.NewClient(o.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         param.NewOpt(generationTemperature),
		MaxCompletionTokens: param.NewOpt(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
