// Package genclient talks to an OpenRouter-compatible chat completion API to
// summarize commits, falling back across models and retrying transient failures.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"golang.org/x/time/rate"
)

const (
	systemPrompt = "You are an expert software engineer who analyzes git commits and provides clear, concise summaries. " +
		"Focus on the 'why' behind the change, not just the 'what'. Keep summaries to 1-2 sentences maximum."
	userPromptFormat = "Summarize this git commit for a technical audience:\n\nCommit Message: %s\n\nFiles Changed: %d\nAdditions: %d\nDeletions: %d"
	probeMessage     = "Hello"
	maxErrorBody     = 512
)

// ErrEmptyContent means the provider answered without any text.
var ErrEmptyContent = errors.New("no content in response")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// ProviderError is an error object returned inside a 2xx body.
type ProviderError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *ProviderError) Error() string {
	return "API error: " + e.Message
}

// TransportError wraps failures below HTTP: DNS, refused connections, broken bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *ProviderError `json:"error,omitempty"`
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	SiteURL        string
	SiteTitle      string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	BatchSize      int
	BatchDelay     time.Duration
	Retry          RetryPolicy
	HTTPClient     *http.Client
}

// OptionsFromConfig maps the validated runtime config onto client options.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{
		BaseURL:        cfg.OpenRouterBaseURL,
		APIKey:         cfg.OpenRouterAPIKey,
		SiteURL:        cfg.SiteURL,
		SiteTitle:      cfg.SiteTitle,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: cfg.RequestTimeout,
		BatchSize:      cfg.BatchSize,
		BatchDelay:     cfg.BatchDelay,
		Retry:          DefaultRetryPolicy(cfg.MaxAttempts, cfg.RetryDelay),
	}
}

// Client generates commit summaries.
type Client struct {
	opts    Options
	catalog contract.ModelCatalog
	http    *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ contract.Summarizer = &Client{} // Compile-time check

// New creates a client. Zero-valued options fall back to package defaults.
func New(opts Options, catalog contract.ModelCatalog) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = contract.DefaultOpenRouterBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.SiteTitle == "" {
		opts.SiteTitle = contract.DefaultSiteTitle
	}
	if opts.Temperature == 0 {
		opts.Temperature = contract.DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = contract.DefaultMaxTokens
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = contract.DefaultRequestTimeout
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = contract.DefaultBatchSize
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy(contract.DefaultMaxAttempts, contract.DefaultRetryDelay)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		opts:     opts,
		catalog:  catalog,
		http:     httpClient,
		limiters: make(map[string]*rate.Limiter),
	}
}

// CandidateModels orders the models to try: override, primary, fallback, then
// the remaining enabled models. Each id appears once; empty ids are dropped.
func CandidateModels(override string, cfg schema.ModelConfig) []string {
	ids := append([]string{override, cfg.Primary, cfg.Fallback}, cfg.Enabled...)
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GenerateSummary tries each candidate in order and returns the first non-empty
// summary. When every candidate fails the result is empty; no error is returned.
func (c *Client) GenerateSummary(ctx context.Context, facts contract.CommitFacts, candidates []string) contract.SummaryResult {
	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, facts.Message, facts.FilesChanged, facts.Additions, facts.Deletions)},
	}
	for _, modelID := range candidates {
		if ctx.Err() != nil {
			break
		}
		content, err := c.tryModel(ctx, modelID, messages)
		if err != nil {
			contract.LogWarn(fmt.Sprintf("Model %s failed", modelID), err)
			continue
		}
		return contract.SummaryResult{Summary: content, ModelUsed: modelID}
	}
	return contract.SummaryResult{}
}

// TestModelAvailability sends a trivial probe through the same retry policy.
func (c *Client) TestModelAvailability(ctx context.Context, modelID string) bool {
	_, err := c.tryModel(ctx, modelID, []chatMessage{{Role: "user", Content: probeMessage}})
	return err == nil
}

// AvailableModels probes every enabled model and returns the ones that answered.
func (c *Client) AvailableModels(ctx context.Context, cfg schema.ModelConfig) []string {
	available := []string{}
	for _, id := range cfg.Enabled {
		if c.TestModelAvailability(ctx, id) {
			available = append(available, id)
		}
	}
	return available
}

// tryModel runs one request for modelID under the retry policy.
func (c *Client) tryModel(ctx context.Context, modelID string, messages []chatMessage) (string, error) {
	model, ok := c.catalog.GetModelByID(modelID)
	if !ok {
		return "", fmt.Errorf("model %s not found in configuration", modelID)
	}
	limiter := c.limiterFor(model)

	var content string
	err := c.opts.Retry.Do(ctx, func(ctx context.Context) error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		content, err = c.complete(ctx, modelID, messages)
		return err
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// limiterFor returns the token bucket for a model, or nil when the catalog has no rate limit.
func (c *Client) limiterFor(model schema.ModelDescriptor) *rate.Limiter {
	if model.RateLimit <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[model.ID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(model.RateLimit)/60), model.RateLimit)
		c.limiters[model.ID] = l
	}
	return l
}

// complete performs a single chat completion request with its own deadline.
func (c *Client) complete(ctx context.Context, modelID string, messages []chatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.opts.SiteURL)
	req.Header.Set("X-Title", c.opts.SiteTitle)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(raw)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: text}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", parsed.Error
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyContent
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}
