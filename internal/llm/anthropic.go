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
	"time"

	"github.com/rs/zerolog"
)

const (
	envAPIKey    = "ANTHROPIC_API_KEY"
	envModel     = "ANTHROPIC_MODEL"
	envBaseURL   = "ANTHROPIC_BASE_URL"
	defaultModel = "claude-sonnet-4-5-20250929"

	apiURL      = "https://api.anthropic.com/v1/messages"
	apiVersion  = "2023-06-01"
	maxTokens   = 900
	timeoutSecs = 60

	maxRetries     = 3
	retryBaseDelay = 500 * time.Millisecond
	maxRequestSize = 200000 // ~200KB limit for safety

	jsonInstruction = "\n\nRespond with a single JSON object and nothing else."
)

type anthropicClient struct {
	apiKey    string
	model     string
	url       string
	http      *http.Client
	logger    zerolog.Logger
	baseDelay time.Duration
}

func newAnthropic(opts Options) (Client, error) {
	key := resolve(opts.APIKey, envAPIKey, "")
	if key == "" {
		return nil, fmt.Errorf("missing %s", envAPIKey)
	}
	return &anthropicClient{
		apiKey: key,
		model:  resolve(opts.Model, envModel, defaultModel),
		url:    resolve(opts.BaseURL, envBaseURL, apiURL),
		http: &http.Client{
			Timeout: timeoutSecs * time.Second,
		},
		logger:    opts.Logger,
		baseDelay: retryBaseDelay,
	}, nil
}

func (c *anthropicClient) Name() string { return c.model }

func (c *anthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}

	for i, m := range req.Messages {
		if len(m.Content) > maxRequestSize {
			c.logger.Warn().Int("message_idx", i).Int("size", len(m.Content)).Msg("message too large, truncating")
			req.Messages[i].Content = m.Content[:maxRequestSize] + "... [truncated]"
		}
	}
	if len(req.System) > maxRequestSize {
		c.logger.Warn().Int("size", len(req.System)).Msg("system prompt too large, truncating")
		req.System = req.System[:maxRequestSize] + "... [truncated]"
	}

	// No native JSON mode: the instruction goes into the system prompt.
	system := req.System
	if req.JSON {
		system += jsonInstruction
	}
	payload := anthropicPayload{
		Model:       c.model,
		System:      strings.TrimSpace(system),
		MaxTokens:   max(req.MaxTokens, maxTokens),
		Temperature: float64(req.Temperature),
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, toAnthropicMessage(m))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying Anthropic API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		c.logger.Debug().
			Str("model", c.model).
			Int("messages", len(payload.Messages)).
			Int("payload_size", len(body)).
			Int("max_tokens", payload.MaxTokens).
			Msg("Anthropic API request")

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", apiVersion)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if attempt < maxRetries && ctx.Err() == nil {
				continue
			}
			return Response{}, lastErr
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			if attempt < maxRetries {
				continue
			}
			return Response{}, lastErr
		}

		c.logger.Debug().
			Int("status", resp.StatusCode).
			Int("response_size", len(data)).
			Msg("Anthropic API response")

		if resp.StatusCode >= 400 {
			var apiErr anthropicErrorEnvelope
			rawError := string(data)
			if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error.Error() == "" {
				lastErr = fmt.Errorf("anthropic %d: %s", resp.StatusCode, truncateString(rawError, 500))
			} else {
				lastErr = fmt.Errorf("anthropic %d: %s (type: %s)", resp.StatusCode, apiErr.Error.Error(), apiErr.Error.Type)
			}

			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("error_type", apiErr.Error.Type).
				Str("error_msg", apiErr.Error.Message).
				Int("attempt", attempt).
				Msg("Anthropic API error")

			// Usage limits do not recover on retry.
			if resp.StatusCode == http.StatusBadRequest &&
				apiErr.Error.Type == "invalid_request_error" &&
				strings.Contains(apiErr.Error.Message, "API usage limits") {
				return Response{}, fmt.Errorf("API usage limit reached: %s", apiErr.Error.Message)
			}

			// Retry on 429 (rate limit) and 5xx errors
			if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < maxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var ar anthropicResponse
		if err := json.Unmarshal(data, &ar); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			if attempt < maxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var buf bytes.Buffer
		for _, content := range ar.Content {
			if content.Type == "text" {
				buf.WriteString(content.Text)
			}
		}
		if buf.Len() == 0 {
			return Response{}, fmt.Errorf("empty response content")
		}

		c.logger.Debug().
			Int("response_length", buf.Len()).
			Msg("Anthropic API success")

		return Response{Text: buf.String()}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func toAnthropicMessage(m Message) anthropicMessage {
	content := make([]anthropicContent, 0, len(m.Images)+1)
	for _, img := range m.Images {
		content = append(content, anthropicContent{
			Type: "image",
			Source: &anthropicImageSource{
				Type:      "base64",
				MediaType: img.MediaType,
				Data:      img.Data,
			},
		})
	}
	content = append(content, anthropicContent{Type: "text", Text: m.Content})
	return anthropicMessage{Role: m.Role, Content: content}
}

type anthropicPayload struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicErrorEnvelope struct {
	Error anthropicError `json:"error"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e anthropicError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Type
}
