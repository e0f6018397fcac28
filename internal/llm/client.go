// Package llm implements the fallback-chain client for remote language
// models. Providers are tried in configuration order; each speaks the
// OpenAI-compatible chat-completions wire format against its own base URL.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
)

// ErrAllProvidersFailed is returned when every provider in the chain failed
var ErrAllProvidersFailed = errors.New("all model providers failed")

const jsonRetryInstruction = "Your previous reply was not valid JSON. Respond again with ONLY a single valid JSON object and nothing else."

// chatRequest is the OpenAI-compatible request body
type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []interfaces.Message `json:"messages"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the completion response the client reads
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client walks an ordered provider chain for each completion
type Client struct {
	providers      []common.LLMProviderConfig
	httpClient     *http.Client
	maxJSONRetries int
	lastProvider   string
	logger         arbor.ILogger
}

// NewClient creates a model client from the LLM configuration. The primary
// provider is tried first, the fallback after it.
func NewClient(cfg *common.LLMConfig, logger arbor.ILogger) *Client {
	providers := []common.LLMProviderConfig{cfg.Primary}
	if cfg.Fallback.BaseURL != "" {
		providers = append(providers, cfg.Fallback)
	}

	retries := cfg.MaxJSONRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		providers:      providers,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		maxJSONRetries: retries,
		logger:         logger,
	}
}

// LastProviderUsed returns the provider name of the most recent success
func (c *Client) LastProviderUsed() string {
	return c.lastProvider
}

// Complete walks the provider chain until one returns a usable response.
// In JSON mode an invalid-JSON reply earns one retry on the same provider
// with an appended strict-JSON follow-up before falling through.
func (c *Client) Complete(ctx context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	for _, provider := range c.providers {
		content, err := c.callProvider(ctx, provider, req.Messages, req.JSONMode)
		if err != nil {
			c.logger.Warn().
				Str("provider", provider.Name).
				Str("base_url", provider.BaseURL).
				Err(err).
				Msg("Model provider failed, trying next")
			continue
		}

		if req.JSONMode && !isValidJSON(content) {
			c.logger.Warn().
				Str("provider", provider.Name).
				Msg("Model returned invalid JSON, retrying with strict instruction")

			retried, retryErr := c.retryForJSON(ctx, provider, req.Messages, content)
			if retryErr != nil {
				c.logger.Warn().Str("provider", provider.Name).Err(retryErr).Msg("JSON retry failed, trying next provider")
				continue
			}
			content = retried
		}

		c.lastProvider = provider.Name
		return &interfaces.CompletionResponse{
			Content:  content,
			Provider: provider.Name,
			Model:    provider.Model,
		}, nil
	}

	return nil, ErrAllProvidersFailed
}

// retryForJSON re-asks the same provider with the bad reply and a strict
// instruction appended to the conversation.
func (c *Client) retryForJSON(ctx context.Context, provider common.LLMProviderConfig, messages []interfaces.Message, badReply string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxJSONRetries; attempt++ {
		followUp := append(append([]interfaces.Message{}, messages...),
			interfaces.Message{Role: "assistant", Content: badReply},
			interfaces.Message{Role: "user", Content: jsonRetryInstruction},
		)

		content, err := c.callProvider(ctx, provider, followUp, true)
		if err != nil {
			lastErr = err
			continue
		}
		if isValidJSON(content) {
			return content, nil
		}
		lastErr = fmt.Errorf("reply still not valid JSON after retry")
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("reply not valid JSON and no retries configured")
	}
	return "", lastErr
}

// callProvider posts one chat-completion request to a single provider
func (c *Client) callProvider(ctx context.Context, provider common.LLMProviderConfig, messages []interfaces.Message, jsonMode bool) (string, error) {
	body := chatRequest{
		Model:    provider.Model,
		Messages: messages,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to serialize request: %w", err)
	}

	url := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("response missing message content")
	}

	return parsed.Choices[0].Message.Content, nil
}

// isValidJSON accepts a JSON object, optionally wrapped in code fences
func isValidJSON(s string) bool {
	var v interface{}
	return json.Unmarshal([]byte(StripFences(s)), &v) == nil
}

// StripFences removes a surrounding triple-backtick fence (with optional
// language tag) from model output.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. ```json)
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
