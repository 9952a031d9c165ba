package kb

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAnswerer answers knowledge base queries via the OpenAI chat API.
type OpenAIAnswerer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnswerer creates an OpenAI-backed answerer.
func NewOpenAIAnswerer(apiKey, model string) (*OpenAIAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	return &OpenAIAnswerer{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (a *OpenAIAnswerer) Name() string {
	return "openai"
}

// Answer sends the prompt to the chat API and returns the first choice.
func (a *OpenAIAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
