package llmclient

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// RemoteClient talks to an OpenAI-compatible chat-completions endpoint.
type RemoteClient struct {
	client *openai.Client
}

// NewRemoteClient builds a RemoteClient. baseURL lets the same client point
// at OpenAI itself or any OpenAI-compatible gateway.
func NewRemoteClient(baseURL, apiKey string) *RemoteClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &RemoteClient{client: openai.NewClientWithConfig(cfg)}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Complete satisfies Client.
func (c *RemoteClient) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("remote completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("remote completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteJSON satisfies Client, using the provider's native JSON response
// mode so the caller can unmarshal the reply directly.
func (c *RemoteClient) CompleteJSON(ctx context.Context, model string, messages []Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          model,
		Messages:       toOpenAIMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("remote json completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("remote json completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
