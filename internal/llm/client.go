// Package llm is a thin chat-completion client over the provider HTTP APIs.
// Activities are its only consumers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client issues single-turn chat completions against one provider.
type Client struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client

	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
}

// Completer is what the activities depend on; tests substitute a scripted
// implementation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds a client from explicit settings with env fallbacks.
func New(provider, model string) *Client {
	if provider == "" {
		provider = strings.ToLower(os.Getenv("LLM_PROVIDER"))
	}
	if provider == "" {
		provider = "openai"
	}
	if model == "" {
		model = os.Getenv("LLM_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		Provider:   strings.ToLower(provider),
		Model:      model,
		MaxTokens:  1024,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete sends the prompt as a single user message and returns the text of
// the first completion.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	switch c.Provider {
	case "openai":
		return c.completeOpenAI(ctx, prompt)
	case "anthropic":
		return c.completeAnthropic(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported llm provider: %s", c.Provider)
	}
}

type openAIChatRequest struct {
	Model       string       `json:"model"`
	Messages    []openAIChat `json:"messages"`
	Temperature float64      `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

type openAIChat struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) completeOpenAI(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1/chat/completions"
	}
	reqBody := openAIChatRequest{
		Model: c.Model,
		Messages: []openAIChat{
			{Role: "user", Content: prompt},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	data, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, string(body))
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty content")
	}
	return parsed.Choices[0].Message.Content, nil
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []anthMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type anthMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) completeAnthropic(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	url := c.BaseURL
	if url == "" {
		url = "https://api.anthropic.com/v1/messages"
	}
	reqBody := anthropicRequest{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Messages: []anthMessage{
			{Role: "user", Content: prompt},
		},
	}
	data, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(body))
	}
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", fmt.Errorf("anthropic returned empty content")
	}
	return parsed.Content[0].Text, nil
}
