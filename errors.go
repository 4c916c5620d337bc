package testforge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for client-side input faults. They are never retried and
// surface to the caller as a bad-request outcome.
var (
	// ErrEmptyInput reports blank or whitespace-only requirement text.
	ErrEmptyInput = errors.New("empty requirements input")

	// ErrPayloadTooLarge reports a prompt exceeding the configured
	// requirement count or byte limits. Checked before any network call.
	ErrPayloadTooLarge = errors.New("prompt payload too large")

	// ErrEmptySuite reports that validation left zero usable test cases.
	ErrEmptySuite = errors.New("generated suite has no valid cases")

	// ErrUnsupportedFormat reports an unknown render format selector.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// errSimulatedFailure is the cause carried by mock provider failures.
var errSimulatedFailure = errors.New("simulated provider failure")

// FailureKind classifies a provider failure for retry decisions.
type FailureKind string

// Provider failure kinds.
const (
	FailureTimeout   FailureKind = "timeout"
	FailureRateLimit FailureKind = "rate_limit"
	FailureAuth      FailureKind = "auth"
	FailureTransient FailureKind = "transient"
	FailureUnknown   FailureKind = "unknown_provider"
)

// ProviderError is a typed upstream failure from a provider call.
// Providers classify their own failures; the gateway only reads Kind.
type ProviderError struct {
	Kind     FailureKind
	Provider string
	Status   int // HTTP status when applicable, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the gateway may retry after this failure.
// Auth failures and unknown provider faults propagate immediately;
// per-attempt timeouts get a fresh timeout budget on the next attempt.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case FailureTimeout, FailureRateLimit, FailureTransient:
		return true
	default:
		return false
	}
}

// ValidationFailure enumerates why a model response could not be coerced
// into the expected schema, even after the repair pass.
type ValidationFailure struct {
	Violations []string
}

func (e *ValidationFailure) Error() string {
	return "response validation failed: " + strings.Join(e.Violations, "; ")
}

// Stage identifies a pipeline stage. Within a run, stages execute exactly
// once, in declaration order.
type Stage string

// Pipeline stages.
const (
	StageNormalizing Stage = "normalizing"
	StagePrompting   Stage = "prompting"
	StageInvoking    Stage = "invoking"
	StageValidating  Stage = "validating"
	StageRendering   Stage = "rendering"
	StageDone        Stage = "done"
)

// OutcomeKind is the user-facing classification of a failed run.
type OutcomeKind string

// Failure outcomes.
const (
	// OutcomeBadRequest marks a client-side fault: malformed or empty
	// requirements, an oversized payload, or invalid options.
	OutcomeBadRequest OutcomeKind = "bad_request"

	// OutcomeUpstreamFailure marks a provider fault after the retry
	// policy was applied. Retryable distinguishes exhausted-retryable
	// from never-retried causes.
	OutcomeUpstreamFailure OutcomeKind = "upstream_failure"

	// OutcomeGenerationFailed marks an upstream-quality fault: the model
	// answered but its output could not be validated into a usable suite.
	OutcomeGenerationFailed OutcomeKind = "generation_failed"
)

// PipelineError is the typed failure of one pipeline run. It carries
// enough structure (kind, stage, cause) for callers to pick a response
// without inspecting stage internals.
type PipelineError struct {
	Kind      OutcomeKind
	Stage     Stage
	Reason    FailureKind // provider failure kind, for upstream failures
	Retryable bool        // true when retries were exhausted on a retryable cause
	Err       error
}

func (e *PipelineError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pipeline %s at %s (%s): %v", e.Kind, e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("pipeline %s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
