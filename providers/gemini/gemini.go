// Package gemini implements the testforge Provider interface for the
// Google Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/testforge/testforge"
	"github.com/zoobzio/capitan"
)

// Provider implements the testforge Provider interface for Google Gemini API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gemini-1.5-flash", "gemini-1.5-pro"
	BaseURL string        // Optional, defaults to "https://generativelanguage.googleapis.com/v1beta"
	Timeout time.Duration // Optional, defaults to 30s
}

// New creates a new Gemini provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "gemini",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Call sends messages to Gemini and returns the response with usage stats.
// Failures come back as *testforge.ProviderError with the classification
// the retry policy needs.
func (p *Provider) Call(ctx context.Context, messages []testforge.Message, temperature float32) (*testforge.ProviderResponse, error) {
	startTime := time.Now()

	capitan.Info(ctx, testforge.ProviderCallStarted,
		testforge.ProviderKey.Field(p.name),
		testforge.ModelKey.Field(p.model),
	)

	// Extract system messages and conversation messages
	var systemParts []string
	var contents []content
	for _, msg := range messages {
		if msg.Role == testforge.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		role := msg.Role
		// Gemini uses "model" instead of "assistant"
		if role == testforge.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{
			Role: role,
			Parts: []part{
				{Text: msg.Content},
			},
		})
	}

	requestBody := generateContentRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:      temperature,
			ResponseMIMEType: "application/json",
		},
	}
	if len(systemParts) > 0 {
		requestBody.SystemInstruction = &content{
			Parts: []part{
				{Text: strings.Join(systemParts, "\n\n")},
			},
		}
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, p.failure(testforge.FailureUnknown, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, p.failure(testforge.FailureUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")

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

		apiErr := fmt.Errorf("gemini error: status %d", resp.StatusCode)
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			fields = append(fields,
				testforge.ErrorKey.Field(errorResp.Error.Message),
				testforge.APIErrorTypeKey.Field(errorResp.Error.Status),
			)
			apiErr = fmt.Errorf("gemini error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		} else {
			fields = append(fields, testforge.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		}

		capitan.Error(ctx, testforge.ProviderCallFailed, fields...)
		return nil, p.failure(classifyStatus(resp.StatusCode), resp.StatusCode, apiErr)
	}

	var generateResp generateContentResponse
	if err := json.Unmarshal(body, &generateResp); err != nil {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(generateResp.Candidates) == 0 {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("no candidates in response"))
	}

	candidate := generateResp.Candidates[0]
	var textContent string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			textContent = part.Text
			break
		}
	}
	if textContent == "" {
		return nil, p.failure(testforge.FailureTransient, resp.StatusCode, fmt.Errorf("no text content in response"))
	}

	duration := time.Since(startTime)
	promptTokens := generateResp.UsageMetadata.PromptTokenCount
	completionTokens := generateResp.UsageMetadata.CandidatesTokenCount
	totalTokens := generateResp.UsageMetadata.TotalTokenCount

	fields := []capitan.Field{
		testforge.ProviderKey.Field(p.name),
		testforge.ModelKey.Field(p.model),
		testforge.PromptTokensKey.Field(promptTokens),
		testforge.CompletionTokensKey.Field(completionTokens),
		testforge.TotalTokensKey.Field(totalTokens),
		testforge.DurationMsKey.Field(int(duration.Milliseconds())),
		testforge.HTTPStatusCodeKey.Field(resp.StatusCode),
	}
	if candidate.FinishReason != "" {
		fields = append(fields, testforge.FinishReasonKey.Field(candidate.FinishReason))
	}
	capitan.Info(ctx, testforge.ProviderCallCompleted, fields...)

	return &testforge.ProviderResponse{
		Content: textContent,
		Usage: testforge.TokenUsage{
			Prompt:     promptTokens,
			Completion: completionTokens,
			Total:      totalTokens,
		},
		FinishReason: candidate.FinishReason,
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

// Request/Response types for Gemini API

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	TopP             float32 `json:"topP,omitempty"`
	TopK             int     `json:"topK,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
