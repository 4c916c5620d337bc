package testforge

import "testing"

func TestRun_Identity(t *testing.T) {
	a := NewRun()
	b := NewRun()

	if a.ID() == "" {
		t.Error("run ID must not be empty")
	}
	if a.ID() == b.ID() {
		t.Error("run IDs must be unique")
	}
	if a.Stage() != StageNormalizing {
		t.Errorf("new run should start normalizing, got %q", a.Stage())
	}
	if a.StartedAt().IsZero() {
		t.Error("StartedAt must be set")
	}
}

func TestRun_Warnings(t *testing.T) {
	run := NewRun()

	if len(run.Warnings()) != 0 {
		t.Error("new run should have no warnings")
	}

	run.AddWarnings(DroppedCase{RequirementID: "1", Title: "a", Reason: "r"})
	run.AddWarnings(
		DroppedCase{RequirementID: "2", Title: "b", Reason: "r"},
		DroppedCase{RequirementID: "3", Title: "c", Reason: "r"},
	)

	warnings := run.Warnings()
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(warnings))
	}

	// Returned slice is a copy; mutating it must not affect the run.
	warnings[0].Reason = "mutated"
	if run.Warnings()[0].Reason != "r" {
		t.Error("Warnings must return a copy")
	}
}

func TestRun_Repaired(t *testing.T) {
	run := NewRun()
	if run.Repaired() {
		t.Error("new run should not be repaired")
	}
	run.MarkRepaired()
	if !run.Repaired() {
		t.Error("MarkRepaired did not stick")
	}
}

func TestRun_Usage(t *testing.T) {
	run := NewRun()
	if run.Usage() != nil {
		t.Error("new run should have no usage")
	}

	run.SetUsage(nil)
	if run.Usage() != nil {
		t.Error("nil usage should stay unset")
	}

	original := &TokenUsage{Prompt: 10, Completion: 5, Total: 15}
	run.SetUsage(original)
	original.Total = 999

	usage := run.Usage()
	if usage == nil || usage.Total != 15 {
		t.Errorf("SetUsage must copy, got %+v", usage)
	}

	usage.Total = 888
	if run.Usage().Total != 15 {
		t.Error("Usage must return a copy")
	}
}

func TestRun_Stage(t *testing.T) {
	run := NewRun()
	run.setStage(StageInvoking)
	if run.Stage() != StageInvoking {
		t.Errorf("expected invoking stage, got %q", run.Stage())
	}
}
