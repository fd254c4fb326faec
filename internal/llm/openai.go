package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envOpenAIModel     = "OPENAI_MODEL"
	envOpenAIBaseURL   = "OPENAI_BASE_URL"
	defaultOpenAIModel = "gpt-4o"

	openAIAPIURL      = "https://api.openai.com/v1/chat/completions"
	openAIMaxTokens   = 900
	openAITimeoutSecs = 60

	openAIMaxRetries     = 3
	openAIRetryBaseDelay = 500 * time.Millisecond
	openAIMaxRequestSize = 200000 // ~200KB of text, images excluded
)

type openAIClient struct {
	apiKey    string
	model     string
	url       string
	http      *http.Client
	logger    zerolog.Logger
	baseDelay time.Duration
}

type openAIPayload struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

// openAIMessage content is either a plain string or a list of parts.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func newOpenAI(opts Options) (Client, error) {
	key := resolve(opts.APIKey, envOpenAIAPIKey, "")
	if key == "" {
		return nil, fmt.Errorf("missing %s", envOpenAIAPIKey)
	}
	return &openAIClient{
		apiKey: key,
		model:  resolve(opts.Model, envOpenAIModel, defaultOpenAIModel),
		url:    resolve(opts.BaseURL, envOpenAIBaseURL, openAIAPIURL),
		http: &http.Client{
			Timeout: openAITimeoutSecs * time.Second,
		},
		logger:    opts.Logger,
		baseDelay: openAIRetryBaseDelay,
	}, nil
}

func (c *openAIClient) Name() string {
	return c.model
}

func (c *openAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}

	for i, m := range req.Messages {
		if len(m.Content) > openAIMaxRequestSize {
			c.logger.Warn().Int("message_idx", i).Int("size", len(m.Content)).Msg("message too large, truncating")
			req.Messages[i].Content = m.Content[:openAIMaxRequestSize] + "... [truncated]"
		}
	}

	// OpenAI takes the system prompt as the first message.
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}
	payload := openAIPayload{
		Model:       c.model,
		Messages:    messages,
		Temperature: float64(req.Temperature),
		MaxTokens:   max(req.MaxTokens, openAIMaxTokens),
	}
	if req.JSON {
		payload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= openAIMaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying OpenAI API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		c.logger.Debug().
			Str("model", c.model).
			Int("messages", len(messages)).
			Int("payload_size", len(body)).
			Int("max_tokens", payload.MaxTokens).
			Bool("json", req.JSON).
			Msg("OpenAI API request")

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if attempt < openAIMaxRetries && ctx.Err() == nil {
				continue
			}
			return Response{}, lastErr
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			if attempt < openAIMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		c.logger.Debug().
			Int("status", resp.StatusCode).
			Int("response_size", len(data)).
			Msg("OpenAI API response")

		if resp.StatusCode >= 400 {
			var apiResp openAIResponse
			rawError := string(data)
			if err := json.Unmarshal(data, &apiResp); err != nil || apiResp.Error == nil {
				lastErr = fmt.Errorf("openai %d: %s", resp.StatusCode, truncateString(rawError, 500))
			} else {
				errorMsg := apiResp.Error.Message
				if errorMsg == "" {
					errorMsg = truncateString(rawError, 500)
				}
				lastErr = fmt.Errorf("openai %d: %s (type: %s, code: %s)", resp.StatusCode, errorMsg, apiResp.Error.Type, apiResp.Error.Code)
			}

			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("raw_response", truncateString(rawError, 500)).
				Int("attempt", attempt).
				Msg("OpenAI API error")

			// Retry on 429 (rate limit) and 5xx errors
			if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < openAIMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var apiResp openAIResponse
		if err := json.Unmarshal(data, &apiResp); err != nil {
			return Response{}, fmt.Errorf("parse response: %w (raw: %s)", err, truncateString(string(data), 500))
		}
		if len(apiResp.Choices) == 0 {
			return Response{}, fmt.Errorf("no choices in response")
		}

		choice := apiResp.Choices[0]
		text := choice.Message.Content
		if text == "" {
			return Response{}, fmt.Errorf("empty response content")
		}

		c.logger.Debug().
			Str("finish_reason", choice.FinishReason).
			Int("prompt_tokens", apiResp.Usage.PromptTokens).
			Int("completion_tokens", apiResp.Usage.CompletionTokens).
			Int("total_tokens", apiResp.Usage.TotalTokens).
			Str("response_preview", truncateString(text, 200)).
			Msg("OpenAI API success")

		return Response{Text: text}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func toOpenAIMessage(m Message) openAIMessage {
	if len(m.Images) == 0 {
		return openAIMessage{Role: m.Role, Content: m.Content}
	}
	parts := make([]openAIPart, 0, len(m.Images)+1)
	parts = append(parts, openAIPart{Type: "text", Text: m.Content})
	for _, img := range m.Images {
		parts = append(parts, openAIPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Data)},
		})
	}
	return openAIMessage{Role: m.Role, Content: parts}
}
