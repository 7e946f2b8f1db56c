package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to a local Ollama server's chat API.
type OllamaClient struct {
	baseURL string
	http    *http.Client
}

// NewOllamaClient builds an OllamaClient.
func NewOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []ollamaMessage  `json:"messages"`
	Stream   bool             `json:"stream"`
	Format   string           `json:"format,omitempty"` // "json" forces structured output
	Options  map[string]any   `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (c *OllamaClient) chat(ctx context.Context, model string, messages []Message, jsonMode bool) (string, error) {
	msgs := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	reqBody := ollamaChatRequest{Model: model, Messages: msgs, Stream: false}
	if jsonMode {
		reqBody.Format = "json"
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(body))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return out.Message.Content, nil
}

// Complete satisfies Client.
func (c *OllamaClient) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	return c.chat(ctx, model, messages, false)
}

// CompleteJSON satisfies Client, using Ollama's format=json request field.
func (c *OllamaClient) CompleteJSON(ctx context.Context, model string, messages []Message) (string, error) {
	return c.chat(ctx, model, messages, true)
}
