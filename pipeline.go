package testforge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// runState flows through the orchestrator's stage sequence. It is owned
// by exactly one run and discarded when the run ends.
type runState struct {
	run     *Run
	text    string
	options GenerationOptions
	format  Format

	request  *GenerationRequest
	prompt   *Prompt
	raw      *RawModelResponse
	suite    *TestSuite
	artifact []byte
}

// Result is the successful outcome of one pipeline run: the rendered
// artifact plus the validated suite and any informational warnings.
type Result struct {
	RunID    string
	Suite    *TestSuite
	Artifact []byte
	Format   Format
	Warnings []DroppedCase // dropped cases; informational, never fatal
	Repaired bool          // true when the response repair pass was applied
	Usage    *TokenUsage   // provider token usage, nil if unavailable
}

// Pipeline sequences normalization, prompt construction, the provider
// call, validation and rendering, enforcing a single overall deadline.
// A Pipeline is built once at process start and is safe for concurrent
// use; runs share nothing but the gateway's call budget.
type Pipeline struct {
	gateway *Gateway
	cfg     Config
	stages  pipz.Chainable[*runState]
}

// NewPipeline creates a pipeline around a provider. Options apply to the
// gateway call chain (rate limiting, circuit breaking, fallback).
func NewPipeline(provider Provider, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		gateway: NewGateway(provider, cfg, opts...),
		cfg:     cfg,
	}
	p.stages = pipz.NewSequence("pipeline",
		pipz.Apply("normalize", p.normalize),
		pipz.Apply("build-prompt", p.buildPrompt),
		pipz.Apply("invoke", p.invoke),
		pipz.Apply("validate", p.validate),
		pipz.Apply("render", p.render),
	)
	return p
}

// Generate runs the full pipeline on raw requirement text and renders
// the suite in the configured default format. This is the entire inbound
// surface: callers get either a Result or a typed *PipelineError.
func (p *Pipeline) Generate(ctx context.Context, text string, opts GenerationOptions) (*Result, error) {
	return p.GenerateFormat(ctx, text, opts, p.cfg.DefaultFormat)
}

// GenerateFormat is Generate with an explicit artifact format.
//
// The run is bounded by cfg.OverallDeadline (the caller's context may
// tighten it further); cancellation aborts the in-flight provider call
// and discards partial state. Stages execute exactly once, in order,
// with a single failed terminal state reachable from any of them.
func (p *Pipeline) GenerateFormat(ctx context.Context, text string, opts GenerationOptions, format Format) (*Result, error) {
	run := NewRun()

	if !format.valid() {
		return nil, &PipelineError{
			Kind:  OutcomeBadRequest,
			Stage: StageNormalizing,
			Err:   fmt.Errorf("%w: %q", ErrUnsupportedFormat, format),
		}
	}

	if p.cfg.OverallDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.OverallDeadline)
		defer cancel()
	}

	state := &runState{
		run:     run,
		text:    text,
		options: opts.withDefaults(),
		format:  format,
	}

	capitan.Info(ctx, RunStarted,
		RunIDKey.Field(run.ID()),
		ProviderKey.Field(p.gateway.provider.Name()),
		FormatKey.Field(string(format)),
		TemperatureKey.Field(float64(p.cfg.Temperature)),
	)

	if _, err := p.stages.Process(ctx, state); err != nil {
		perr := asPipelineError(err, run.Stage())
		capitan.Error(ctx, RunFailed,
			RunIDKey.Field(run.ID()),
			StageKey.Field(string(perr.Stage)),
			ErrorKey.Field(perr.Error()),
			ErrorKindKey.Field(string(perr.Kind)),
			DurationMsKey.Field(int(time.Since(run.StartedAt()).Milliseconds())),
		)
		return nil, perr
	}

	run.setStage(StageDone)
	capitan.Info(ctx, RunCompleted,
		RunIDKey.Field(run.ID()),
		RequirementCountKey.Field(len(state.request.Requirements)),
		CaseCountKey.Field(len(state.suite.Cases)),
		DroppedCountKey.Field(len(run.Warnings())),
		FormatKey.Field(string(format)),
		DurationMsKey.Field(int(time.Since(run.StartedAt()).Milliseconds())),
	)

	return &Result{
		RunID:    run.ID(),
		Suite:    state.suite,
		Artifact: state.artifact,
		Format:   format,
		Warnings: run.Warnings(),
		Repaired: run.Repaired(),
		Usage:    run.Usage(),
	}, nil
}

func (p *Pipeline) normalize(ctx context.Context, s *runState) (*runState, error) {
	p.enter(ctx, s, StageNormalizing)
	units, err := NormalizeRequirements(s.text)
	if err != nil {
		return s, &PipelineError{Kind: OutcomeBadRequest, Stage: StageNormalizing, Err: err}
	}
	s.request = &GenerationRequest{Requirements: units, Options: s.options}
	return s, nil
}

func (p *Pipeline) buildPrompt(ctx context.Context, s *runState) (*runState, error) {
	p.enter(ctx, s, StagePrompting)
	prompt, err := BuildPrompt(s.request, p.cfg)
	if err != nil {
		return s, &PipelineError{Kind: OutcomeBadRequest, Stage: StagePrompting, Err: err}
	}
	s.prompt = prompt
	return s, nil
}

func (p *Pipeline) invoke(ctx context.Context, s *runState) (*runState, error) {
	p.enter(ctx, s, StageInvoking)
	raw, err := p.gateway.Invoke(ctx, s.run.ID(), s.prompt, p.cfg.Temperature)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return s, &PipelineError{
				Kind:      OutcomeUpstreamFailure,
				Stage:     StageInvoking,
				Reason:    perr.Kind,
				Retryable: perr.Retryable(),
				Err:       err,
			}
		}
		return s, &PipelineError{Kind: OutcomeUpstreamFailure, Stage: StageInvoking, Err: err}
	}
	s.raw = raw
	s.run.SetUsage(raw.Usage)
	return s, nil
}

func (p *Pipeline) validate(ctx context.Context, s *runState) (*runState, error) {
	p.enter(ctx, s, StageValidating)
	suite, dropped, repaired, err := ParseSuite(s.raw.Text, s.request, time.Now())

	if repaired {
		s.run.MarkRepaired()
		capitan.Info(ctx, ResponseRepaired, RunIDKey.Field(s.run.ID()))
	}
	for _, d := range dropped {
		capitan.Info(ctx, CaseDropped,
			RunIDKey.Field(s.run.ID()),
			RequirementIDKey.Field(d.RequirementID),
			CaseTitleKey.Field(d.Title),
			DropReasonKey.Field(d.Reason),
		)
	}
	s.run.AddWarnings(dropped...)

	if err != nil {
		return s, &PipelineError{Kind: OutcomeGenerationFailed, Stage: StageValidating, Err: err}
	}
	// The raw response is transient; drop it once validated.
	s.raw = nil
	s.suite = suite
	return s, nil
}

func (p *Pipeline) render(ctx context.Context, s *runState) (*runState, error) {
	p.enter(ctx, s, StageRendering)
	artifact, err := RenderSuite(s.suite, s.format)
	if err != nil {
		return s, &PipelineError{Kind: OutcomeBadRequest, Stage: StageRendering, Err: err}
	}
	s.artifact = artifact
	return s, nil
}

func (p *Pipeline) enter(ctx context.Context, s *runState, stage Stage) {
	s.run.setStage(stage)
	capitan.Info(ctx, StageEntered,
		RunIDKey.Field(s.run.ID()),
		StageKey.Field(string(stage)),
	)
}

// asPipelineError unwraps the typed failure a stage produced, falling
// back to an upstream classification for anything unexpected.
func asPipelineError(err error, stage Stage) *PipelineError {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr
	}
	return &PipelineError{Kind: OutcomeUpstreamFailure, Stage: stage, Err: err}
}
