package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// HuggingFaceProvider implements TextProvider against the Hugging Face
// router, which speaks the OpenAI chat completions protocol.
type HuggingFaceProvider struct {
	client *openai.Client
	model  string
}

// NewHuggingFaceProvider creates a provider for the given router base URL and
// model. Every request is bounded by timeout.
func NewHuggingFaceProvider(apiKey, baseURL, model string, timeout time.Duration) *HuggingFaceProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &HuggingFaceProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends one chat completion request and returns the first choice.
func (p *HuggingFaceProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("generation API error (status %d): %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("generation API error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("generation API returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}
