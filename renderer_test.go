package testforge

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testSuite() *TestSuite {
	return &TestSuite{
		GeneratedAt:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceRequirementCount: 2,
		Cases: []TestCase{
			{
				ID:             "TC001",
				RequirementID:  "1",
				Title:          "upload succeeds",
				Steps:          []string{"open the upload page", "select a file"},
				ExpectedResult: "file is stored",
				Tags:           []string{"smoke"},
			},
			{
				ID:             "TC002",
				RequirementID:  "2",
				Title:          "upload is logged",
				Steps:          []string{"upload a file", "inspect the audit log"},
				ExpectedResult: "an audit entry exists",
			},
		},
	}
}

func TestRenderSuite_JSONRoundTrip(t *testing.T) {
	suite := testSuite()

	data, err := RenderSuite(suite, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeSuite(data, FormatJSON)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !decoded.GeneratedAt.Equal(suite.GeneratedAt) {
		t.Errorf("GeneratedAt changed: %v vs %v", decoded.GeneratedAt, suite.GeneratedAt)
	}
	if decoded.SourceRequirementCount != suite.SourceRequirementCount {
		t.Errorf("SourceRequirementCount changed: %d vs %d",
			decoded.SourceRequirementCount, suite.SourceRequirementCount)
	}
	if !reflect.DeepEqual(decoded.Cases, suite.Cases) {
		t.Errorf("cases changed across round trip:\ngot  %+v\nwant %+v", decoded.Cases, suite.Cases)
	}
}

func TestRenderSuite_YAMLRoundTrip(t *testing.T) {
	suite := testSuite()

	data, err := RenderSuite(suite, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeSuite(data, FormatYAML)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded.Cases, suite.Cases) {
		t.Errorf("cases changed across round trip:\ngot  %+v\nwant %+v", decoded.Cases, suite.Cases)
	}
}

func TestRenderSuite_Markdown(t *testing.T) {
	suite := testSuite()

	data, err := RenderSuite(suite, FormatMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	// No field of any case may be lost in the report.
	for _, want := range []string{
		"# Test Suite",
		"TC001", "upload succeeds", "`1`",
		"smoke",
		"1. open the upload page",
		"Expected result: file is stored",
		"TC002", "an audit entry exists",
		"| Source requirements | 2 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}

	// TC002 has no tags, so no empty tags line for it.
	if strings.Count(out, "**Tags:**") != 1 {
		t.Errorf("expected exactly one tags line, got %d", strings.Count(out, "**Tags:**"))
	}
}

func TestRenderSuite_Deterministic(t *testing.T) {
	suite := testSuite()
	for _, format := range []Format{FormatJSON, FormatYAML, FormatMarkdown} {
		first, err := RenderSuite(suite, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		second, err := RenderSuite(suite, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s: same suite rendered different bytes", format)
		}
	}
}

func TestRenderSuite_UnsupportedFormat(t *testing.T) {
	_, err := RenderSuite(testSuite(), Format("xml"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeSuite_MarkdownNotReingestible(t *testing.T) {
	_, err := DecodeSuite([]byte("# Test Suite"), FormatMarkdown)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
