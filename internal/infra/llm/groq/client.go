package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
	"github.com/manuasd05/weatherbot/pkg/metrics"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Message mirrors the OpenAI-compatible chat message structure.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the payload sent to the Groq API.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float32   `json:"top_p,omitempty"`
}

// ChatCompletionResponse captures the completion payload.
type ChatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion is one assistant reply plus the token counts it cost.
type Completion struct {
	Content string
	Usage   metrics.TokenUsage
}

// Client performs HTTP requests against Groq's OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Groq client. A missing API key is tolerated here so
// the rest of the service can boot; Generate reports it as a config error.
func NewClient(apiKey, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate runs one chat completion and returns the assistant text along
// with the token usage the API reported.
func (c *Client) Generate(ctx context.Context, req ChatCompletionRequest) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, apperrors.Wrap(apperrors.CodeConfig, "groq api key not configured", nil)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Completion{}, fmt.Errorf("encode chat completion request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.CodeProvider, "groq request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Completion{}, apperrors.Wrap(apperrors.CodeProvider,
			fmt.Sprintf("groq request failed: status=%d body=%s", resp.StatusCode, string(body)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, apperrors.Wrap(apperrors.CodeProvider, "read groq response", err)
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Completion{}, apperrors.Wrap(apperrors.CodeProvider, "decode groq response", err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, apperrors.Wrap(apperrors.CodeProvider, "groq returned no choices", nil)
	}
	return Completion{
		Content: out.Choices[0].Message.Content,
		Usage: metrics.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}
