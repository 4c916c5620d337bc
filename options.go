package testforge

import (
	"time"

	"github.com/zoobzio/pipz"
)

// Option modifies the gateway call chain for reliability features.
// Options wrap the provider call only; retry policy stays with the
// gateway, which needs failure classification to decide.
type Option func(pipz.Chainable[*GatewayRequest]) pipz.Chainable[*GatewayRequest]

// WithTimeout adds timeout protection to the call chain, below the
// gateway's per-attempt budget.
func WithTimeout(duration time.Duration) Option {
	return func(call pipz.Chainable[*GatewayRequest]) pipz.Chainable[*GatewayRequest] {
		return pipz.NewTimeout("timeout", call, duration)
	}
}

// WithCircuitBreaker adds circuit breaker protection to the call chain.
// After 'failures' consecutive failures, the circuit opens for 'recovery'
// duration. The breaker is shared by all concurrent runs.
func WithCircuitBreaker(failures int, recovery time.Duration) Option {
	return func(call pipz.Chainable[*GatewayRequest]) pipz.Chainable[*GatewayRequest] {
		return pipz.NewCircuitBreaker("circuit-breaker", call, failures, recovery)
	}
}

// WithFallback routes to an alternate provider when the primary call
// fails. The fallback provider is tried with the same request.
func WithFallback(fallback Provider) Option {
	return func(call pipz.Chainable[*GatewayRequest]) pipz.Chainable[*GatewayRequest] {
		return pipz.NewFallback("with-fallback", call, callTerminal(fallback))
	}
}

// WithErrorHandler adds error handling to the call chain. The handler
// receives error context and can process/log/alert as needed.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*GatewayRequest]]) Option {
	return func(call pipz.Chainable[*GatewayRequest]) pipz.Chainable[*GatewayRequest] {
		return pipz.NewHandle("error-handler", call, handler)
	}
}
