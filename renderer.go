package testforge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// Format selects the artifact serialization of a rendered suite.
type Format string

// Supported artifact formats.
const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

func (f Format) valid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return true
	}
	return false
}

// RenderSuite serializes a validated suite into the selected format.
// It is a pure, total function of its input: the same suite and format
// always produce byte-identical output, and no TestCase field is ever
// discarded in any format. Unknown formats fail with
// ErrUnsupportedFormat.
func RenderSuite(suite *TestSuite, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(suite, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(suite)
		if err != nil {
			return nil, fmt.Errorf("render yaml: %w", err)
		}
		return data, nil
	case FormatMarkdown:
		return renderMarkdown(suite), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// DecodeSuite re-ingests a rendered artifact. JSON and YAML round-trip;
// markdown is render-only.
func DecodeSuite(data []byte, format Format) (*TestSuite, error) {
	var suite TestSuite
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q is not re-ingestible", ErrUnsupportedFormat, format)
	}
	return &suite, nil
}

// renderMarkdown writes the human-readable report: a summary table
// followed by one section per case.
func renderMarkdown(suite *TestSuite) []byte {
	var b strings.Builder

	b.WriteString("# Test Suite\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", suite.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| Source requirements | %d |\n", suite.SourceRequirementCount))
	b.WriteString(fmt.Sprintf("| Test cases | %d |\n", len(suite.Cases)))
	b.WriteString("\n---\n\n")

	for _, tc := range suite.Cases {
		b.WriteString(fmt.Sprintf("## %s — %s\n\n", tc.ID, tc.Title))
		b.WriteString(fmt.Sprintf("**Requirement:** `%s`\n\n", tc.RequirementID))
		if len(tc.Tags) > 0 {
			b.WriteString(fmt.Sprintf("**Tags:** %s\n\n", strings.Join(tc.Tags, ", ")))
		}
		b.WriteString("Steps:\n\n")
		for i, step := range tc.Steps {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
		b.WriteString(fmt.Sprintf("\nExpected result: %s\n\n", tc.ExpectedResult))
	}

	return []byte(b.String())
}
