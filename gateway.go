package testforge

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// GatewayRequest flows through the gateway's pipz call chain.
// It carries one attempt's prompt, parameters and response data.
type GatewayRequest struct {
	// Input fields
	Prompt      *Prompt   // The structured prompt to send to the LLM
	Messages    []Message // Rendered conversation messages
	Temperature float32   // Temperature parameter for response generation

	// Metadata fields
	RunID        string // Identifier of the owning pipeline run
	Attempt      int    // 1-based attempt counter
	ProviderName string // Name of the provider being used

	// Output fields (populated by the call chain)
	Response     string      // Raw text response from provider
	Usage        *TokenUsage // Token usage from provider response
	FinishReason string      // Provider-reported finish reason
	LatencyMs    int64       // Wall-clock duration of the provider call
}

// Gateway sends prompts to an LLM provider with bounded timeouts and a
// classified retry policy. The call chain (rate limiter, circuit breaker,
// fallback) is built once and shared by all concurrent runs; pipz
// components are safe for concurrent use, so no run can starve another's
// retry budget.
type Gateway struct {
	provider Provider
	cfg      Config
	call     pipz.Chainable[*GatewayRequest]
}

// NewGateway creates a gateway around a provider. Options wrap the call
// chain; retry is owned by Invoke itself because retry decisions depend
// on failure classification.
func NewGateway(provider Provider, cfg Config, opts ...Option) *Gateway {
	var call pipz.Chainable[*GatewayRequest] = callTerminal(provider)
	for _, opt := range opts {
		call = opt(call)
	}
	if cfg.RateLimitPerSecond > 0 {
		limiter := pipz.NewRateLimiter[*GatewayRequest]("rate-limit", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
		call = pipz.NewSequence("rate-limited", limiter, call)
	}
	return &Gateway{
		provider: provider,
		cfg:      cfg,
		call:     call,
	}
}

// callTerminal creates the terminal processor that calls a provider with
// the request messages and records response metadata.
func callTerminal(provider Provider) pipz.Chainable[*GatewayRequest] {
	return pipz.Apply("llm-call", func(ctx context.Context, req *GatewayRequest) (*GatewayRequest, error) {
		started := time.Now()
		resp, err := provider.Call(ctx, req.Messages, req.Temperature)
		if err != nil {
			return req, err
		}
		req.Response = resp.Content
		req.Usage = &resp.Usage
		req.FinishReason = resp.FinishReason
		req.LatencyMs = time.Since(started).Milliseconds()
		return req, nil
	})
}

// Invoke sends the prompt and returns the raw model response or a typed
// *ProviderError. Transient, rate-limit and per-attempt timeout failures
// are retried with exponential backoff and jitter up to cfg.MaxAttempts;
// auth and unknown-provider failures propagate immediately. Each attempt
// gets a fresh AttemptTimeout; total elapsed time is bounded by the
// caller's context deadline.
func (g *Gateway) Invoke(ctx context.Context, runID string, prompt *Prompt, temperature float32) (*RawModelResponse, error) {
	if err := prompt.Validate(); err != nil {
		return nil, err
	}

	messages := []Message{{Role: RoleUser, Content: prompt.Render()}}
	maxAttempts := g.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var perr *ProviderError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, g.deadlineError(ctx)
		}

		req := &GatewayRequest{
			Prompt:       prompt,
			Messages:     messages,
			Temperature:  temperature,
			RunID:        runID,
			Attempt:      attempt,
			ProviderName: g.provider.Name(),
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		processed, err := g.call.Process(attemptCtx, req)
		cancel()

		if err == nil {
			usage := 0
			if processed.Usage != nil {
				usage = processed.Usage.Total
			}
			return &RawModelResponse{
				Text:         processed.Response,
				TokensUsed:   usage,
				Usage:        processed.Usage,
				LatencyMs:    processed.LatencyMs,
				FinishReason: processed.FinishReason,
			}, nil
		}

		perr = g.classify(err)
		capitan.Error(ctx, ProviderCallFailed,
			RunIDKey.Field(runID),
			ProviderKey.Field(g.provider.Name()),
			AttemptKey.Field(attempt),
			ErrorKey.Field(perr.Error()),
			ErrorKindKey.Field(string(perr.Kind)),
		)

		// The overall deadline wins over any per-attempt retry budget.
		if ctx.Err() != nil {
			return nil, g.deadlineError(ctx)
		}
		if !perr.Retryable() || attempt == maxAttempts {
			return nil, perr
		}

		if !g.backoff(ctx, attempt) {
			return nil, g.deadlineError(ctx)
		}
	}

	return nil, perr
}

// classify maps an arbitrary call-chain error to a *ProviderError.
// Providers return typed errors already; everything else is conservative:
// timeouts retry, unrecognized faults do not.
func (g *Gateway) classify(err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: FailureTimeout, Provider: g.provider.Name(), Err: err}
	}
	return &ProviderError{Kind: FailureUnknown, Provider: g.provider.Name(), Err: err}
}

// deadlineError wraps the caller context's terminal state.
func (g *Gateway) deadlineError(ctx context.Context) *ProviderError {
	return &ProviderError{Kind: FailureTimeout, Provider: g.provider.Name(), Err: ctx.Err()}
}

// backoff sleeps before the next attempt, doubling the base delay per
// failure and adding jitter. Returns false if the context expired first.
func (g *Gateway) backoff(ctx context.Context, attempt int) bool {
	delay := g.cfg.BackoffBase << (attempt - 1)
	if delay <= 0 {
		return ctx.Err() == nil
	}
	if g.cfg.JitterFactor > 0 {
		delay += time.Duration(rand.Float64() * g.cfg.JitterFactor * float64(delay)) //nolint:gosec // jitter, not crypto
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
