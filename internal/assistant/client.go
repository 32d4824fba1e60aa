package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const completionsPath = "/chat/completions"

// Turn is one message of a chat-completions request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClientConfig configures the chat-completions client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	RetryCount  int
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpClient  *resty.Client
	model       string
	temperature float64
}

var errInvalidResponse = errors.New("invalid response format from assistant API")

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en-US,en")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}
	return &Client{httpClient: httpClient, model: cfg.Model, temperature: cfg.Temperature}
}

// Complete sends the turns and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, turns []Turn) (string, error) {
	var out completionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:       c.model,
			Messages:    turns,
			Temperature: c.temperature,
		}).
		SetResult(&out).
		Post(completionsPath)
	if err != nil {
		return "", fmt.Errorf("call assistant API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("assistant API call failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", errInvalidResponse
	}
	return *out.Choices[0].Message.Content, nil
}
