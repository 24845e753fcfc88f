// Package chat forwards free-text commands to an OpenAI-compatible
// completion backend. The default deployment points it at a local
// Ollama server.
package chat

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client answers one prompt per call with no conversation memory; the
// assistant's own history lives in the store.
type Client struct {
	api   openai.Client
	model string
}

// New builds a Client. baseURL may point at any OpenAI-compatible
// endpoint; httpClient is optional (proxy setups pass their own).
func New(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: model,
	}
}

// Ask returns the model's reply to prompt.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}
