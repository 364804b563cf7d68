// Package llm provides chat-completion clients for the supported model
// providers behind a single Client interface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// Provider constants for model provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// defaultMaxTokens bounds the response when the config leaves MaxTokens unset.
const defaultMaxTokens = 4096

// Message represents a conversation message. Ordering is significant;
// values are immutable once appended to a conversation.
type Message struct {
	Role    Role
	Content string
}

// Config holds model client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string // Required: API key for the provider
	BaseURL   string // Optional: custom API endpoint
	Model     string // Model name (e.g., "gpt-4o", "claude-sonnet-4-5-20250514")
	MaxTokens int    // Response token ceiling; 0 uses the default
}

// Client sends an ordered message sequence to a model and returns the text
// of its reply.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// New creates a Client for the configured provider ("openai" or "anthropic").
// Defaults to Anthropic if no provider is specified.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAnthropic
	}

	switch provider {
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// APIStatus extracts the HTTP status code from a provider API error.
// Transport errors carry no status and report false.
func APIStatus(err error) (int, bool) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}

	return 0, false
}
