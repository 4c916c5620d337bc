package testforge

import "time"

// RequirementUnit is one atomic, addressable piece of requirement text.
// Units are immutable once created; their IDs are stable for the lifetime
// of a single pipeline run so generated cases can be traced back.
type RequirementUnit struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Start int    `json:"start"` // Byte offset of the unit in the raw input
	End   int    `json:"end"`   // Byte offset just past the unit
}

// GenerationRequest bundles the normalized requirements with the options
// controlling how cases are produced. A request is owned by exactly one
// pipeline run and never shared across runs.
type GenerationRequest struct {
	Requirements []RequirementUnit
	Options      GenerationOptions
}

// Unit returns the requirement unit with the given ID, or false.
func (r *GenerationRequest) Unit(id string) (RequirementUnit, bool) {
	for _, u := range r.Requirements {
		if u.ID == id {
			return u, true
		}
	}
	return RequirementUnit{}, false
}

// Framework selects the style the generated test steps are phrased in.
type Framework string

// Recognized frameworks.
const (
	FrameworkGeneric Framework = "generic"
	FrameworkBDD     Framework = "bdd"
	FrameworkTabular Framework = "tabular"
)

// Coverage selects how deeply each requirement is exercised.
type Coverage string

// Recognized coverage levels.
const (
	CoverageBasic    Coverage = "basic"
	CoverageThorough Coverage = "thorough"
)

// GenerationOptions are the tunable parameters controlling test case
// production. Zero values resolve to explicit defaults, so every field is
// total by the time a prompt is built.
type GenerationOptions struct {
	Framework              Framework `json:"framework"`
	Coverage               Coverage  `json:"coverage"`
	Language               string    `json:"language"`
	MaxTestsPerRequirement int       `json:"maxTestsPerRequirement"`
}

// DefaultGenerationOptions returns the fully-populated default options.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Framework:              FrameworkGeneric,
		Coverage:               CoverageBasic,
		Language:               "en",
		MaxTestsPerRequirement: 3,
	}
}

// withDefaults fills unset fields with their defaults.
func (o GenerationOptions) withDefaults() GenerationOptions {
	def := DefaultGenerationOptions()
	if o.Framework == "" {
		o.Framework = def.Framework
	}
	if o.Coverage == "" {
		o.Coverage = def.Coverage
	}
	if o.Language == "" {
		o.Language = def.Language
	}
	if o.MaxTestsPerRequirement <= 0 {
		o.MaxTestsPerRequirement = def.MaxTestsPerRequirement
	}
	return o
}

// RawModelResponse is the opaque provider output plus call metadata.
// It is transient: discarded after parsing, surfaced only through hooks.
type RawModelResponse struct {
	Text         string
	TokensUsed   int
	Usage        *TokenUsage // full breakdown when the provider reports one
	LatencyMs    int64
	FinishReason string
}

// TestCase is a single generated test. Cases are constructed fully formed
// and never mutated afterwards; repair replaces, it does not edit.
type TestCase struct {
	ID             string   `json:"id"`
	RequirementID  string   `json:"requirementId"`
	Title          string   `json:"title"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Tags           []string `json:"tags,omitempty"`
}

// TestSuite is the validated output of one pipeline run. Every
// RequirementID in Cases references a unit of the originating request;
// the validator drops cases violating this.
type TestSuite struct {
	GeneratedAt            time.Time  `json:"generatedAt"`
	SourceRequirementCount int        `json:"sourceRequirementCount"`
	Cases                  []TestCase `json:"cases"`
}

// DroppedCase records a case the validator discarded. It is informational,
// not an error: dropped cases always accompany a successful result unless
// the whole suite ended up empty.
type DroppedCase struct {
	RequirementID string `json:"requirementId"`
	Title         string `json:"title"`
	Reason        string `json:"reason"`
}

// suiteWire is the JSON contract the model is instructed to emit.
// It is parsed from untrusted output and validated into a TestSuite;
// nothing crosses from wire to domain without a check.
type suiteWire struct {
	Cases []caseWire `json:"cases"`
}

type caseWire struct {
	ID             string   `json:"id" desc:"unique case identifier, e.g. TC001"`
	RequirementID  string   `json:"requirementId" desc:"id of the requirement this case verifies"`
	Title          string   `json:"title" desc:"short descriptive title"`
	Steps          []string `json:"steps" desc:"ordered execution steps"`
	ExpectedResult string   `json:"expectedResult" desc:"observable outcome that marks the case as passed"`
	Tags           []string `json:"tags,omitempty" desc:"free-form labels such as smoke or negative"`
}
