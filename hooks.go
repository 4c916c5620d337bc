package testforge

import "github.com/zoobzio/capitan"

// Signals for hook events.
const (
	RunStarted   = capitan.Signal("testforge.run.started")
	RunCompleted = capitan.Signal("testforge.run.completed")
	RunFailed    = capitan.Signal("testforge.run.failed")

	StageEntered = capitan.Signal("testforge.stage.entered")

	ProviderCallStarted   = capitan.Signal("testforge.provider.call.started")
	ProviderCallCompleted = capitan.Signal("testforge.provider.call.completed")
	ProviderCallFailed    = capitan.Signal("testforge.provider.call.failed")

	ResponseRepaired = capitan.Signal("testforge.response.repaired")
	CaseDropped      = capitan.Signal("testforge.case.dropped")
)

// Keys for hook event fields.
var (
	// Run identification.
	RunIDKey = capitan.NewStringKey("testforge.run.id")
	StageKey = capitan.NewStringKey("testforge.stage")

	// Pipeline data.
	RequirementCountKey = capitan.NewIntKey("testforge.requirements.count")
	CaseCountKey        = capitan.NewIntKey("testforge.cases.count")
	DroppedCountKey     = capitan.NewIntKey("testforge.cases.dropped")
	FormatKey           = capitan.NewStringKey("testforge.format")
	RequirementIDKey    = capitan.NewStringKey("testforge.requirement.id")
	CaseTitleKey        = capitan.NewStringKey("testforge.case.title")
	DropReasonKey       = capitan.NewStringKey("testforge.case.drop.reason")

	// Error information.
	ErrorKey     = capitan.NewStringKey("testforge.error")
	ErrorKindKey = capitan.NewStringKey("testforge.error.kind")

	// Provider information.
	ProviderKey    = capitan.NewStringKey("testforge.provider")
	ModelKey       = capitan.NewStringKey("testforge.model")
	AttemptKey     = capitan.NewIntKey("testforge.attempt")
	TemperatureKey = capitan.NewFloat64Key("testforge.temperature")

	// Provider metrics.
	PromptTokensKey     = capitan.NewIntKey("testforge.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("testforge.tokens.completion")
	TotalTokensKey      = capitan.NewIntKey("testforge.tokens.total")
	DurationMsKey       = capitan.NewIntKey("testforge.duration.ms")

	// HTTP/API metadata.
	HTTPStatusCodeKey = capitan.NewIntKey("testforge.http.status.code")
	APIErrorTypeKey   = capitan.NewStringKey("testforge.api.error.type")
	APIErrorCodeKey   = capitan.NewStringKey("testforge.api.error.code")

	// Response metadata.
	FinishReasonKey = capitan.NewStringKey("testforge.response.finish.reason")
)
