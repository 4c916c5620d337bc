package testforge

import "fmt"

// BuildPrompt deterministically constructs the LLM prompt for a
// generation request. The same request and config always yield a
// byte-identical Prompt.Render(). Every generation option is rendered as
// an explicit instruction rather than passed through as a label.
//
// Size limits are enforced here, before any network call: exceeding the
// configured requirement count or encoded payload size fails with
// ErrPayloadTooLarge. Oversized input is never silently truncated, since
// truncation loses requirement coverage.
func BuildPrompt(req *GenerationRequest, cfg Config) (*Prompt, error) {
	opts := req.Options.withDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	if cfg.MaxRequirements > 0 && len(req.Requirements) > cfg.MaxRequirements {
		return nil, fmt.Errorf("%w: %d requirements exceeds limit %d",
			ErrPayloadTooLarge, len(req.Requirements), cfg.MaxRequirements)
	}

	prompt := &Prompt{
		Task:         "Generate a software test suite covering every listed requirement",
		Requirements: req.Requirements,
		Schema:       suiteSchema(),
		Constraints:  constraintsFor(opts),
	}

	if cfg.MaxPromptBytes > 0 {
		if size := len(prompt.Render()); size > cfg.MaxPromptBytes {
			return nil, fmt.Errorf("%w: rendered prompt is %d bytes, limit %d",
				ErrPayloadTooLarge, size, cfg.MaxPromptBytes)
		}
	}

	return prompt, nil
}

func validateOptions(opts GenerationOptions) error {
	switch opts.Framework {
	case FrameworkGeneric, FrameworkBDD, FrameworkTabular:
	default:
		return fmt.Errorf("unknown test framework %q", opts.Framework)
	}
	switch opts.Coverage {
	case CoverageBasic, CoverageThorough:
	default:
		return fmt.Errorf("unknown coverage level %q", opts.Coverage)
	}
	return nil
}

// constraintsFor renders each generation option into concrete
// instructions. Ordering is fixed so prompt bytes stay stable.
func constraintsFor(opts GenerationOptions) []string {
	constraints := []string{
		"cover every requirement, referencing its id exactly as given",
	}

	switch opts.Coverage {
	case CoverageThorough:
		constraints = append(constraints,
			"for each requirement generate positive, negative and boundary cases")
	default:
		constraints = append(constraints,
			"for each requirement generate the single most important happy-path case")
	}

	switch opts.Framework {
	case FrameworkBDD:
		constraints = append(constraints,
			"phrase each step as a Given/When/Then clause")
	case FrameworkTabular:
		constraints = append(constraints,
			"phrase each step as an input=value assignment suitable for a decision table")
	default:
		constraints = append(constraints,
			"write steps as short imperative actions")
	}

	constraints = append(constraints,
		fmt.Sprintf("write titles, steps and expected results in %q", opts.Language),
		fmt.Sprintf("generate at most %d cases per requirement", opts.MaxTestsPerRequirement),
		"steps and expectedResult must be non-empty for every case",
		"return only the JSON object, no surrounding prose or code fences",
	)

	return constraints
}
