package testforge

import (
	"errors"
	"strings"
	"testing"
)

func testGenerationRequest() *GenerationRequest {
	return &GenerationRequest{
		Requirements: testRequirements(),
		Options:      DefaultGenerationOptions(),
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	req := testGenerationRequest()

	first, err := BuildPrompt(req, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := BuildPrompt(req, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Render() != second.Render() {
		t.Error("same request rendered different prompt bytes")
	}
}

func TestBuildPrompt_OptionsAffectConstraints(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("coverage", func(t *testing.T) {
		req := testGenerationRequest()
		req.Options.Coverage = CoverageThorough

		prompt, err := BuildPrompt(req, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(prompt.Render(), "positive, negative and boundary") {
			t.Error("thorough coverage not reflected in constraints")
		}
	})

	t.Run("framework", func(t *testing.T) {
		req := testGenerationRequest()
		req.Options.Framework = FrameworkBDD

		prompt, err := BuildPrompt(req, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(prompt.Render(), "Given/When/Then") {
			t.Error("bdd framework not reflected in constraints")
		}
	})

	t.Run("language and cap", func(t *testing.T) {
		req := testGenerationRequest()
		req.Options.Language = "pt-BR"
		req.Options.MaxTestsPerRequirement = 5

		prompt, err := BuildPrompt(req, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rendered := prompt.Render()
		if !strings.Contains(rendered, `"pt-BR"`) {
			t.Error("language not reflected in constraints")
		}
		if !strings.Contains(rendered, "at most 5 cases") {
			t.Error("per-requirement cap not reflected in constraints")
		}
	})
}

func TestBuildPrompt_DefaultsApplied(t *testing.T) {
	cfg := DefaultConfig()
	req := &GenerationRequest{Requirements: testRequirements()}

	prompt, err := BuildPrompt(req, cfg)
	if err != nil {
		t.Fatalf("zero options should resolve to defaults: %v", err)
	}
	if !strings.Contains(prompt.Render(), `"en"`) {
		t.Error("default language not applied")
	}
}

func TestBuildPrompt_UnknownOptions(t *testing.T) {
	cfg := DefaultConfig()

	req := testGenerationRequest()
	req.Options.Framework = "cucumber"
	if _, err := BuildPrompt(req, cfg); err == nil {
		t.Error("expected error for unknown framework")
	}

	req = testGenerationRequest()
	req.Options.Coverage = "exhaustive"
	if _, err := BuildPrompt(req, cfg); err == nil {
		t.Error("expected error for unknown coverage")
	}
}

func TestBuildPrompt_TooManyRequirements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequirements = 2

	req := &GenerationRequest{
		Requirements: []RequirementUnit{
			{ID: "1", Text: "a"}, {ID: "2", Text: "b"}, {ID: "3", Text: "c"},
		},
		Options: DefaultGenerationOptions(),
	}

	_, err := BuildPrompt(req, cfg)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestBuildPrompt_PromptTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPromptBytes = 100

	_, err := BuildPrompt(testGenerationRequest(), cfg)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestBuildPrompt_SchemaEmbedded(t *testing.T) {
	prompt, err := BuildPrompt(testGenerationRequest(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt.Schema, "requirementId") {
		t.Error("schema missing case fields")
	}
}
