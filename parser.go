package testforge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseSuite parses and validates raw model output into a TestSuite.
// The model output is untrusted: nothing crosses into the suite without a
// check, and structural failures get exactly one bounded repair pass.
//
// Returns the suite, any dropped-case warnings, whether the repair pass
// was applied, and an error. A *ValidationFailure means the text could
// not be coerced into the schema even after repair; ErrEmptySuite means
// validation left zero usable cases.
//
// Case order is preserved as emitted by the model; exact duplicates by
// (requirementId, title) collapse to the first occurrence. Cases
// referencing unknown requirements or missing steps/expectedResult are
// dropped, not fatal.
func ParseSuite(text string, req *GenerationRequest, now time.Time) (*TestSuite, []DroppedCase, bool, error) {
	repaired := false

	wire, strictErr := parseStrict(text)
	if strictErr != nil {
		repaired = true
		candidate := repairResponse(text)
		lenient, lenientErr := parseLenient(candidate)
		if lenientErr != nil {
			return nil, nil, repaired, &ValidationFailure{Violations: []string{
				fmt.Sprintf("strict parse: %v", strictErr),
				fmt.Sprintf("repaired parse: %v", lenientErr),
			}}
		}
		wire = lenient
	}

	known := make(map[string]bool, len(req.Requirements))
	for _, u := range req.Requirements {
		known[u.ID] = true
	}

	var cases []TestCase
	var dropped []DroppedCase
	seen := make(map[string]bool)

	for _, cw := range wire.Cases {
		if reason := invalidCaseReason(cw, known); reason != "" {
			dropped = append(dropped, DroppedCase{
				RequirementID: cw.RequirementID,
				Title:         cw.Title,
				Reason:        reason,
			})
			continue
		}

		key := cw.RequirementID + "\x00" + cw.Title
		if seen[key] {
			dropped = append(dropped, DroppedCase{
				RequirementID: cw.RequirementID,
				Title:         cw.Title,
				Reason:        "duplicate of an earlier case",
			})
			continue
		}
		seen[key] = true

		cases = append(cases, buildCase(cw, len(cases)+1))
	}

	if len(cases) == 0 {
		return nil, dropped, repaired, fmt.Errorf("%w: model emitted %d cases, none valid",
			ErrEmptySuite, len(wire.Cases))
	}

	suite := &TestSuite{
		GeneratedAt:            now.UTC(),
		SourceRequirementCount: len(req.Requirements),
		Cases:                  cases,
	}
	return suite, dropped, repaired, nil
}

// parseStrict decodes the text as exactly one JSON object matching the
// schema, rejecting unknown fields and trailing content.
func parseStrict(text string) (*suiteWire, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var wire suiteWire
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing content after JSON object")
	}
	return &wire, nil
}

// parseLenient tolerates unknown fields, a common model mistake.
func parseLenient(text string) (*suiteWire, error) {
	var wire suiteWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, err
	}
	return &wire, nil
}

// repairResponse is the single bounded repair pass: strip code fences,
// then extract the first balanced JSON object from surrounding prose.
// It is idempotent, so re-running it on repaired output changes nothing.
func repairResponse(text string) string {
	return extractBalancedJSON(stripCodeFences(text))
}

// stripCodeFences removes a surrounding markdown code fence, if any.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// extractBalancedJSON returns the first balanced {...} span, honoring
// string literals and escapes. Falls back to first-{ … last-} and then to
// the input unchanged.
func extractBalancedJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	if end := strings.LastIndexByte(text, '}'); end > start {
		return text[start : end+1]
	}
	return text
}

// invalidCaseReason returns a non-empty drop reason when the case fails
// referential or completeness checks.
func invalidCaseReason(cw caseWire, known map[string]bool) string {
	if strings.TrimSpace(cw.RequirementID) == "" {
		return "missing requirementId"
	}
	if !known[cw.RequirementID] {
		return fmt.Sprintf("references unknown requirement %q", cw.RequirementID)
	}
	if len(nonEmptySteps(cw.Steps)) == 0 {
		return "no non-empty steps"
	}
	if strings.TrimSpace(cw.ExpectedResult) == "" {
		return "empty expectedResult"
	}
	return ""
}

// buildCase constructs an immutable TestCase from validated wire data.
// Cases without an ID get a deterministic TC-prefixed ordinal.
func buildCase(cw caseWire, ordinal int) TestCase {
	id := strings.TrimSpace(cw.ID)
	if id == "" {
		id = fmt.Sprintf("TC%03d", ordinal)
	}
	tags := make([]string, 0, len(cw.Tags))
	for _, t := range cw.Tags {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		tags = nil
	}
	return TestCase{
		ID:             id,
		RequirementID:  cw.RequirementID,
		Title:          strings.TrimSpace(cw.Title),
		Steps:          nonEmptySteps(cw.Steps),
		ExpectedResult: strings.TrimSpace(cw.ExpectedResult),
		Tags:           tags,
	}
}

func nonEmptySteps(steps []string) []string {
	var kept []string
	for _, s := range steps {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}
