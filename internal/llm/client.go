package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	envProvider = "LLM_PROVIDER" // "openai" or "anthropic"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Client is the reasoning transport.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSON asks the provider to answer with a single JSON object.
	JSON bool
}

// Image is an inline, base64-encoded picture attached to a message.
type Image struct {
	MediaType string
	Data      string
}

type Message struct {
	Role    string
	Content string
	Images  []Image
}

type Response struct {
	Text string
}

// Options selects and configures a provider. Empty fields fall back to the
// provider's environment variables.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Logger   zerolog.Logger
}

// New creates a client for opts.Provider, or LLM_PROVIDER when unset.
// Defaults to OpenAI.
func New(opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = strings.ToLower(strings.TrimSpace(os.Getenv(envProvider)))
	}
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAI(opts)
	case ProviderAnthropic:
		return newAnthropic(opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (use 'openai' or 'anthropic')", provider)
	}
}

func resolve(explicit, env, def string) string {
	if v := strings.Trim(strings.TrimSpace(explicit), "\"'"); v != "" {
		return v
	}
	if v := strings.Trim(strings.TrimSpace(os.Getenv(env)), "\"'"); v != "" {
		return v
	}
	return def
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
