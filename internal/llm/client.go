// Package llm is a stateless HTTP client for an OpenAI-compatible
// chat-completions endpoint, including the provider's builtin
// $web_search tool convention.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/axiomhub/axiom-gateway/internal/config"
	"github.com/axiomhub/axiom-gateway/internal/metrics"
)

// WebSearchTool is the provider's builtin web-search function name.
const WebSearchTool = "$web_search"

// NotConfiguredReply is returned in place of an answer when the
// provider credentials are missing. Missing configuration is
// recoverable chat text, not a process failure.
const NotConfiguredReply = "The model API is not configured. Please set LLM_API_KEY and LLM_MODEL."

// CompleteOptions tune a single completion call.
type CompleteOptions struct {
	// Model overrides the configured default model when non-empty.
	Model string
	// EnableWebSearch advertises the builtin search tool with
	// tool_choice "auto".
	EnableWebSearch bool
}

// Client wraps the chat-completion endpoint. It owns request
// construction, error translation and the outbound timeout; retries
// belong to the caller.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a client from resolved configuration.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.GetTemperature(),
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Configured reports whether the provider credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.model != ""
}

// Complete posts the messages and returns the first completion choice.
func (c *Client) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Choice, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	reqBody := completionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if opts.EnableWebSearch {
		reqBody.Tools = []Tool{{
			Type:     "builtin_function",
			Function: ToolFunction{Name: WebSearchTool},
		}}
		reqBody.ToolChoice = "auto"
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.GatewayLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.GatewayRequests.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var detail any
		if err := json.Unmarshal(raw, &detail); err != nil {
			detail = string(raw)
		}
		return nil, &GatewayError{Status: resp.StatusCode, Body: detail}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &completion.Choices[0], nil
}

// Send posts the messages and returns the assistant text of the first
// choice. Missing credentials resolve to the fixed configuration
// reply instead of an error.
func (c *Client) Send(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	if !c.Configured() {
		return NotConfiguredReply, nil
	}
	choice, err := c.Complete(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return choice.Message.Text(), nil
}

// SendWithRetry is Send with a single retry when the first attempt
// times out. A second timeout propagates.
func (c *Client) SendWithRetry(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	text, err := c.Send(ctx, messages, opts)
	if err != nil && IsTimeout(err) {
		return c.Send(ctx, messages, opts)
	}
	return text, err
}
