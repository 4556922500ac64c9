package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.1-8b-instant"
)

// GroqConfig holds configuration for the Groq completer.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	System  string
}

// GroqClient completes prompts through Groq's OpenAI-compatible chat API.
type GroqClient struct {
	client *openai.Client
	model  string
	system string
	apiKey string
}

// NewGroqClient creates a Groq completer.
func NewGroqClient(cfg GroqConfig) *GroqClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &GroqClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		system: cfg.System,
		apiKey: cfg.APIKey,
	}
}

func (g *GroqClient) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.1,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has an API key
func (g *GroqClient) IsConfigured() bool {
	return g.apiKey != ""
}
