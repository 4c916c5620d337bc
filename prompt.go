package testforge

import (
	"fmt"
	"strings"
)

// Prompt represents a structured LLM prompt with consistent formatting.
// Rendering is deterministic: the same prompt always produces the same
// bytes, which keeps generation requests reproducible and cacheable.
type Prompt struct {
	Task         string            // Required: what the LLM should do
	Requirements []RequirementUnit // Required: the requirement set with IDs
	Context      string            // Optional: additional context
	Schema       string            // Required: JSON schema for the response
	Constraints  []string          // Required: rules and constraints
}

// Render converts the structured prompt to a string for the LLM.
// It enforces consistent ordering and formatting.
func (p *Prompt) Render() string {
	var sections []string

	// Task is always first
	if p.Task != "" {
		sections = append(sections, "Task: "+p.Task)
	}

	// Optional context
	if p.Context != "" {
		sections = append(sections, "Context: "+p.Context)
	}

	// Requirements with stable IDs
	if len(p.Requirements) > 0 {
		reqs := "Requirements:\n"
		for _, u := range p.Requirements {
			reqs += fmt.Sprintf("  [%s] %s\n", u.ID, strings.ReplaceAll(u.Text, "\n", " "))
		}
		sections = append(sections, strings.TrimSpace(reqs))
	}

	// Schema - always required
	if p.Schema != "" {
		sections = append(sections, "Return JSON:\n"+p.Schema)
	}

	// Constraints - always last
	if len(p.Constraints) > 0 {
		con := "Constraints:\n"
		for _, c := range p.Constraints {
			con += "- " + c + "\n"
		}
		sections = append(sections, strings.TrimSpace(con))
	}

	return strings.Join(sections, "\n\n")
}

// Validate checks if the prompt has required fields.
func (p *Prompt) Validate() error {
	if p.Task == "" {
		return fmt.Errorf("prompt missing required Task field")
	}
	if len(p.Requirements) == 0 {
		return fmt.Errorf("prompt missing required Requirements field")
	}
	if p.Schema == "" {
		return fmt.Errorf("prompt missing required Schema field")
	}
	return nil
}
