// Package completion requests chat completions from an OpenAI-compatible
// service, bounding both input size and output length.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
)

// Client is a chat-completions client. It does not retry failed requests.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	profile Profile
	client  *http.Client
}

// Config configures the completions client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Profile   Profile
	Timeout   time.Duration
}

// NewClient creates a completions client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = Quality
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		profile: cfg.Profile,
		client:  &http.Client{Timeout: t},
	}, nil
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.model }

// Complete trims the message list to the profile's input budget, sends it to
// the completion service and returns the generated text.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	trimmed := trimToBudget(messages, c.profile.MaxInputChars)
	if len(trimmed) < len(messages) {
		logger.Debug("trimmed %d oldest messages to fit input budget", len(messages)-len(trimmed))
	}
	body, _ := json.Marshal(struct {
		Model       string           `json:"model"`
		Messages    []domain.Message `json:"messages"`
		Temperature float64          `json:"temperature"`
		MaxTokens   int              `json:"max_tokens"`
	}{
		Model:       c.model,
		Messages:    trimmed,
		Temperature: c.profile.Temperature,
		MaxTokens:   c.profile.MaxOutputTokens,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion request: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: chat completion: %s", domain.ErrAuth, resp.Status)
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: chat completion: %s", domain.ErrServiceUnavailable, resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode chat completion response: %v", domain.ErrServiceUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", domain.ErrServiceUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}

// trimToBudget keeps the leading system message and then walks the rest from
// most-recent to least-recent, accumulating content length in runes and
// dropping the oldest messages once the budget is crossed. The most recent
// message is always kept so there is something to answer.
func trimToBudget(messages []domain.Message, budget int) []domain.Message {
	if len(messages) == 0 || budget <= 0 {
		return messages
	}
	rest := messages
	var system []domain.Message
	if messages[0].Role == domain.RoleSystem {
		system = messages[:1]
		rest = messages[1:]
		budget -= utf8.RuneCountInString(messages[0].Content)
	}
	used := 0
	keepFrom := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		used += utf8.RuneCountInString(rest[i].Content)
		if used > budget && keepFrom < len(rest) {
			break
		}
		keepFrom = i
	}
	out := make([]domain.Message, 0, len(system)+len(rest)-keepFrom)
	out = append(out, system...)
	out = append(out, rest[keepFrom:]...)
	return out
}

var _ domain.Completer = (*Client)(nil)
