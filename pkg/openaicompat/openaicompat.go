package openaicompat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/afeedhshaji/ollama-worker/pkg/llm"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// placeholderKey is sent as the bearer token; Ollama ignores it but the SDK requires one.
const placeholderKey = "ollama"

// Client generates text through Ollama's OpenAI-compatible /v1 API
type Client struct {
	client openai.Client
}

// New creates a client for the server at baseURL (the Ollama root, without /v1).
// A zero timeout means requests never time out.
func New(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/") + "/v1/"
	return &Client{
		client: openai.NewClient(
			option.WithBaseURL(base),
			option.WithAPIKey(placeholderKey),
			option.WithMaxRetries(0),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
	}
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	slog.Debug("openai-compatible chat completion", "model", model, "prompt_len", len(prompt))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return llm.NoResponse, nil
	}
	return completion.Choices[0].Message.Content, nil
}

var _ llm.Generator = (*Client)(nil)
