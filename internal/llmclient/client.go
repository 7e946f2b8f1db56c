// Package llmclient provides a provider-agnostic chat-completion client.
//
// Go Pattern: the interface is declared here, where it's consumed, and two
// concrete implementations — a remote OpenAI-compatible client and a local
// Ollama client — satisfy it implicitly. Callers depend on the interface,
// never on a concrete provider type.
package llmclient

import "context"

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Client is satisfied by every LLM provider this project talks to.
type Client interface {
	// Complete returns the assistant's free-form text reply.
	Complete(ctx context.Context, model string, messages []Message) (string, error)

	// CompleteJSON returns the assistant's reply with JSON-mode enforced,
	// so the caller can json.Unmarshal it directly. Providers that don't
	// support a native JSON mode fall back to a strong system-prompt
	// instruction plus best-effort extraction.
	CompleteJSON(ctx context.Context, model string, messages []Message) (string, error)
}

// New builds the Client for the configured provider.
func New(provider, remoteBaseURL, remoteAPIKey, localBaseURL string) Client {
	if provider == "local" {
		return NewOllamaClient(localBaseURL)
	}
	return NewRemoteClient(remoteBaseURL, remoteAPIKey)
}
