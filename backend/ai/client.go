package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carabin/backend/config"
)

// ChatClient is the completion surface the job runner needs. Satisfied by
// *Client in production and by mocks in tests.
type ChatClient interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
}

// Client calls the Azure OpenAI chat-completions REST endpoint. Requests
// that hit 429 or a 5xx are retried with exponential backoff, honoring
// Retry-After when the service sends one.
type Client struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string

	HTTPClient  *http.Client
	MaxAttempts int
	BackoffBase time.Duration

	MaxTokens   int
	Temperature float64
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Endpoint:    strings.TrimRight(cfg.AzureEndpoint, "/"),
		APIKey:      cfg.AzureKey,
		Deployment:  cfg.AzureDeployment,
		APIVersion:  cfg.AzureAPIVersion,
		HTTPClient:  &http.Client{Timeout: 120 * time.Second},
		MaxAttempts: 5,
		BackoffBase: 2 * time.Second,
		MaxTokens:   2048,
		Temperature: 0.1,
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("azure openai client not configured")
	}

	body := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.Endpoint, c.Deployment, c.APIVersion)

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt, lastErr)); err != nil {
				return "", err
			}
		}

		content, retryable, err := c.do(ctx, url, raw)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("azure openai: giving up after %d attempts: %w", attempts, lastErr)
}

// do performs a single request. retryable marks 429/5xx and transport
// failures.
func (c *Client) do(ctx context.Context, url string, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("azure request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, &httpError{status: resp.StatusCode, retryAfter: parseRetryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("azure http %d: %s", resp.StatusCode, string(raw))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", false, fmt.Errorf("unmarshal response: %w", err)
	}
	if decoded.Error != nil {
		return "", false, fmt.Errorf("azure error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", false, fmt.Errorf("azure response missing choices")
	}
	return decoded.Choices[0].Message.Content, false, nil
}

type httpError struct {
	status     int
	retryAfter time.Duration
}

func (e *httpError) Error() string {
	return fmt.Sprintf("azure http %d", e.status)
}

// backoff doubles per attempt from BackoffBase, but a Retry-After header
// from the previous response takes precedence.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	if he, ok := lastErr.(*httpError); ok && he.retryAfter > 0 {
		return he.retryAfter
	}
	d := c.BackoffBase
	if d <= 0 {
		d = 2 * time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
