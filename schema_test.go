package testforge

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSuiteSchema_ValidJSON(t *testing.T) {
	schema := suiteSchema()

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(schema), &parsed); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if parsed["type"] != "object" {
		t.Errorf("expected object schema, got %v", parsed["type"])
	}
}

func TestSuiteSchema_CaseFields(t *testing.T) {
	schema := suiteSchema()

	for _, field := range []string{"id", "requirementId", "title", "steps", "expectedResult", "tags"} {
		if !strings.Contains(schema, `"`+field+`"`) {
			t.Errorf("schema missing field %q", field)
		}
	}
	if !strings.Contains(schema, `"additionalProperties": false`) {
		t.Error("schema should reject additional properties")
	}
}

func TestSuiteSchema_RequiredFields(t *testing.T) {
	var parsed struct {
		Properties struct {
			Cases struct {
				Items struct {
					Required []string `json:"required"`
				} `json:"items"`
			} `json:"cases"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal([]byte(suiteSchema()), &parsed); err != nil {
		t.Fatalf("failed to parse schema: %v", err)
	}

	if len(parsed.Required) != 1 || parsed.Required[0] != "cases" {
		t.Errorf("expected top-level required [cases], got %v", parsed.Required)
	}

	required := make(map[string]bool)
	for _, f := range parsed.Properties.Cases.Items.Required {
		required[f] = true
	}
	for _, f := range []string{"id", "requirementId", "title", "steps", "expectedResult"} {
		if !required[f] {
			t.Errorf("case field %q should be required", f)
		}
	}
	// tags is omitempty, so optional
	if required["tags"] {
		t.Error("tags should not be required")
	}
}

func TestSuiteSchema_Deterministic(t *testing.T) {
	if suiteSchema() != suiteSchema() {
		t.Error("schema output is not deterministic")
	}
}

func TestGoTypeToJSONType(t *testing.T) {
	tests := []struct {
		goType string
		want   string
	}{
		{"string", "string"},
		{"int", "integer"},
		{"float64", "number"},
		{"bool", "boolean"},
		{"[]string", "array"},
		{"map[string]string", "object"},
		{"CustomType", "object"},
	}
	for _, tt := range tests {
		if got := goTypeToJSONType(tt.goType); got != tt.want {
			t.Errorf("goTypeToJSONType(%q) = %q, want %q", tt.goType, got, tt.want)
		}
	}
}
