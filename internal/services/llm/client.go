package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loreline/internal/logging"
	"loreline/internal/textutil"
)

const (
	// FormatOpenAI selects the chat-completions wire format (OpenRouter and compatibles).
	FormatOpenAI = "openai"
	// FormatAnthropic selects the messages wire format.
	FormatAnthropic = "anthropic"

	defaultOpenAIURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnthropicURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	defaultHTTPTimeout   = 120 * time.Second
	defaultMaxTokens     = 6000
	defaultRetries       = 2
	defaultRetryDelay    = 5 * time.Second
	defaultRetryAfterCap = 60 * time.Second
)

// Config captures the runtime settings required to talk to the generation service.
type Config struct {
	Format         string
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client issues single-turn completions against a hosted model.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	retries       int
	retryDelay    time.Duration
	retryAfterCap time.Duration
	sleeper       func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetries sets the number of additional attempts after a transport failure (defaults to 2).
func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts and the ceiling applied to Retry-After.
func WithRetryDelay(delay, retryAfterCap time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.retryDelay = delay
		}
		if retryAfterCap > 0 {
			c.retryAfterCap = retryAfterCap
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "llm")
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = FormatOpenAI
	}
	client := &Client{
		cfg: Config{
			Format:         format,
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			MaxTokens:      cfg.MaxTokens,
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logging.NewNop(),
		retries:       defaultRetries,
		retryDelay:    defaultRetryDelay,
		retryAfterCap: defaultRetryAfterCap,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		if format == FormatAnthropic {
			client.cfg.BaseURL = defaultAnthropicURL
		} else {
			client.cfg.BaseURL = defaultOpenAIURL
		}
	}
	if client.cfg.MaxTokens <= 0 {
		client.cfg.MaxTokens = defaultMaxTokens
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, textutil.Snippet(e.Body))
}

// StatusCode reports the HTTP status carried by err, or 0 when err is not an HTTP failure.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

type emptyContentError struct {
	Op         string
	StopReason string
	Snippet    string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (stop_reason=%q, response_snippet=%s)", e.Op, e.StopReason, e.Snippet)
}

// Complete sends one system/user prompt pair and returns the model's text.
// Transport failures are retried with a fixed delay; context cancellation aborts immediately.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	return c.completeWithRetry(ctx, systemPrompt, userPrompt, c.cfg.MaxTokens, "llm complete")
}

// HealthCheck issues a tiny prompt once to verify the key, model and endpoint are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, body, err := c.sendOnce(ctx, "Reply with the single word OK.", "ping", 16)
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return &emptyContentError{Op: "llm health", Snippet: textutil.Snippet(string(body))}
	}
	return nil
}

func (c *Client) completeWithRetry(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, op string) (string, error) {
	attempts := c.retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		content, _, err := c.sendOnce(ctx, systemPrompt, userPrompt, maxTokens)
		if err == nil {
			return content, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := c.delayFor(err)
		logging.WarnWithContext(c.logger, "llm request failed; retrying", "llm_retry",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity, api key and rate limits"),
			logging.String(logging.FieldImpact, "chunk request delayed"),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, []byte, error) {
	var (
		payload []byte
		err     error
	)
	if c.cfg.Format == FormatAnthropic {
		payload, err = encodeMessagesRequest(c.cfg.Model, systemPrompt, userPrompt, maxTokens)
	} else {
		payload, err = encodeChatRequest(c.cfg.Model, systemPrompt, userPrompt, maxTokens)
	}
	if err != nil {
		return "", nil, fmt.Errorf("llm request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Format == FormatAnthropic {
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var (
		content    string
		stopReason string
	)
	if c.cfg.Format == FormatAnthropic {
		content, stopReason, err = decodeMessagesResponse(body)
	} else {
		content, stopReason, err = decodeChatResponse(body)
	}
	if err != nil {
		return "", body, err
	}
	if strings.TrimSpace(content) == "" {
		return "", body, &emptyContentError{
			Op:         "llm request",
			StopReason: stopReason,
			Snippet:    textutil.Snippet(string(body)),
		}
	}
	return content, body, nil
}

func (c *Client) delayFor(err error) time.Duration {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		if c.retryAfterCap > 0 && statusErr.RetryAfter > c.retryAfterCap {
			return c.retryAfterCap
		}
		return statusErr.RetryAfter
	}
	return c.retryDelay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
