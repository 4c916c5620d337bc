// Package openai implements the testforge Provider interface for the
// OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/testforge/testforge"
	"github.com/zoobzio/capitan"
)

// Provider implements the testforge Provider interface for OpenAI API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gpt-4o-mini", "gpt-4o"
	BaseURL string        // Optional, defaults to "https://api.openai.com/v1"
	Timeout time.Duration // Optional, defaults to 30s
}

// New creates a new OpenAI provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "openai",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Call sends messages to OpenAI and returns the response with usage stats.
// Failures come back as *testforge.ProviderError with the classification
// the retry policy needs.
func (p *Provider) Call(ctx context.Context, messages []testforge.Message, temperature float32) (*testforge.ProviderResponse, error) {
	startTime := time.Now()

	capitan.Info(ctx, testforge.ProviderCallStarted,
		testforge.ProviderKey.Field(p.name),
		testforge.ModelKey.Field(p.model),
	)

	// Build request body with JSON mode enabled
	wireMessages := make([]message, 0, len(messages))
	for _, msg := range messages {
		wireMessages = append(wireMessages, message{Role: msg.Role, Content: msg.Content})
	}
	requestBody := chatCompletionRequest{
		Model:       p.model,
		Messages:    wireMessages,
		Temperature: temperature,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, p.failure(testforge.FailureUnknown, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, p.failure(testforge.FailureUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, p.failure(testforge.FailureTimeout, 0, ctx.Err())
		}
		return nil, p.failure(testforge.FailureTransient, 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		duration := time.Since(startTime)
		var errorResp errorResponse

		fields := []capitan.Field{
			testforge.ProviderKey.Field(p.name),
			testforge.ModelKey.Field(p.model),
			testforge.HTTPStatusCodeKey.Field(resp.StatusCode),
			testforge.DurationMsKey.Field(int(duration.Milliseconds())),
		}

		apiErr := fmt.Errorf("openai error: status %d", resp.StatusCode)
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			fields = append(fields,
				testforge.ErrorKey.Field(errorResp.Error.Message),
				testforge.APIErrorTypeKey.Field(errorResp.Error.Type),
			)
			if errorResp.Error.Code != "" {
				fields = append(fields, testforge.APIErrorCodeKey.Field(errorResp.Error.Code))
			}
			apiErr = fmt.Errorf("openai error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		} else {
			fields = append(fields, testforge.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		}

		capitan.Error(ctx, testforge.ProviderCallFailed, fields...)
		return nil, p.failure(classifyStatus(resp.StatusCode), resp.StatusCode, apiErr)
	}

	var completionResp chatCompletionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(completionResp.Choices) == 0 {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("no response choices returned"))
	}

	duration := time.Since(startTime)
	choice := completionResp.Choices[0]

	fields := []capitan.Field{
		testforge.ProviderKey.Field(p.name),
		testforge.ModelKey.Field(completionResp.Model),
		testforge.PromptTokensKey.Field(completionResp.Usage.PromptTokens),
		testforge.CompletionTokensKey.Field(completionResp.Usage.CompletionTokens),
		testforge.TotalTokensKey.Field(completionResp.Usage.TotalTokens),
		testforge.DurationMsKey.Field(int(duration.Milliseconds())),
		testforge.HTTPStatusCodeKey.Field(resp.StatusCode),
	}
	if choice.FinishReason != "" {
		fields = append(fields, testforge.FinishReasonKey.Field(choice.FinishReason))
	}
	capitan.Info(ctx, testforge.ProviderCallCompleted, fields...)

	return &testforge.ProviderResponse{
		Content: choice.Message.Content,
		Usage: testforge.TokenUsage{
			Prompt:     completionResp.Usage.PromptTokens,
			Completion: completionResp.Usage.CompletionTokens,
			Total:      completionResp.Usage.TotalTokens,
		},
		FinishReason: choice.FinishReason,
	}, nil
}

func (p *Provider) failure(kind testforge.FailureKind, status int, err error) *testforge.ProviderError {
	return &testforge.ProviderError{
		Kind:     kind,
		Provider: p.name,
		Status:   status,
		Err:      err,
	}
}

// classifyStatus maps an HTTP status to a retry classification.
func classifyStatus(status int) testforge.FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return testforge.FailureRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return testforge.FailureAuth
	case status == http.StatusRequestTimeout:
		return testforge.FailureTimeout
	case status >= 500:
		return testforge.FailureTransient
	default:
		return testforge.FailureUnknown
	}
}

// Request/Response types for OpenAI API

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
