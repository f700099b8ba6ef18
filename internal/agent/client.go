package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/netprobe/internal/sessions"
)

// Client produces one completion for a conversation. Implementations
// wrap a model backend; tests use a scripted stub.
type Client interface {
	Complete(ctx context.Context, messages []sessions.Message) (string, error)
}

// defaultModel is used when none is configured.
const defaultModel = "llama3.2"

// OpenAIClient speaks the OpenAI-compatible chat API. Pointing the base
// URL at a local Ollama instance works unchanged.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOllamaClient builds a client against a local Ollama server.
func NewOllamaClient(host, model string) *OpenAIClient {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = os.Getenv("NETPROBE_MODEL")
	}
	if model == "" {
		model = defaultModel
	}
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(host, "/") + "/v1"
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model reports the configured model name.
func (c *OpenAIClient) Model() string { return c.model }

// Complete runs one chat completion over the full message list.
func (c *OpenAIClient) Complete(ctx context.Context, messages []sessions.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		role := m.Role
		switch role {
		case "user", "assistant", "system":
		default:
			role = "system"
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
