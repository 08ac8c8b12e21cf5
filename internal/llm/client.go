package llm

import (
	"context"
	"errors"

	"github.com/aurastack/aura/internal/common/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatMessage is one turn sent to a chat model.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatClient produces chat completions. Agents depend on this interface
// so tests can substitute a fake model.
type ChatClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// Client wraps the OpenAI client with our configuration.
type Client struct {
	client openai.Client
	model  string
}

var _ ChatClient = (*Client)(nil)

// NewClient creates an OpenAI-backed chat client.
func NewClient(cfg *config.OpenAIConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Complete sends the messages and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
