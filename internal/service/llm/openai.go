package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/service"
)

// OpenAIClient implements service.ModelClient over Chat Completions.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (c *OpenAIClient) Kind() models.ServiceKind {
	return models.ServiceOpenAI
}

func (c *OpenAIClient) Invoke(ctx context.Context, model string, prompt string, opts service.InvokeOptions) (string, error) {
	endpoint := models.Endpoint{Service: models.ServiceOpenAI, Model: model}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", NewCallError(endpoint, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
