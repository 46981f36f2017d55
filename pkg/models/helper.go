package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	genai "github.com/google/generative-ai-go/genai"
)

// Credentials carries API keys for the supported providers. Empty values
// fall back to each provider's conventional environment variable.
type Credentials struct {
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
}

// Factory resolves model identifiers into ChatModels. Identifiers take the
// form "[provider:]model"; a bare model name is a Gemini model.
type Factory struct {
	creds Credentials

	mu     sync.Mutex
	gemini *genai.Client
}

func NewFactory(creds Credentials) *Factory {
	return &Factory{creds: creds}
}

// SplitIdentifier returns the provider and model parts of an identifier.
func SplitIdentifier(identifier string) (provider, model string) {
	identifier = strings.TrimSpace(identifier)
	if i := strings.Index(identifier, ":"); i > 0 {
		return strings.ToLower(identifier[:i]), strings.TrimSpace(identifier[i+1:])
	}
	return "gemini", identifier
}

// ChatModel returns a model for identifier. Missing credentials are reported
// here so callers fail before serving any request.
func (f *Factory) ChatModel(ctx context.Context, identifier string) (ChatModel, error) {
	provider, model := SplitIdentifier(identifier)
	if model == "" {
		return nil, fmt.Errorf("model identifier %q has no model name", identifier)
	}
	switch provider {
	case "gemini", "google":
		client, err := f.geminiClient(ctx)
		if err != nil {
			return nil, err
		}
		return NewGeminiModel(client, model), nil
	case "openai":
		m, err := NewOpenAIModel(model, f.creds.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		return NewTextChatModel(identifier, m), nil
	case "anthropic", "claude":
		m, err := NewAnthropicModel(model, f.creds.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		return NewTextChatModel(identifier, m), nil
	case "ollama":
		m, err := NewOllamaModel(model, f.creds.OllamaHost)
		if err != nil {
			return nil, err
		}
		return NewTextChatModel(identifier, m), nil
	case "dummy":
		return NewTextChatModel(identifier, NewDummyModel(model+":")), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func (f *Factory) geminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gemini != nil {
		return f.gemini, nil
	}
	client, err := NewGeminiClient(ctx, f.creds.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	f.gemini = client
	return client, nil
}

// Close releases the shared Gemini client, if one was opened.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gemini == nil {
		return nil
	}
	err := f.gemini.Close()
	f.gemini = nil
	return err
}
