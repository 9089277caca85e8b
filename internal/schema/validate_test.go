package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/eltwork/eltctl/internal/document"
)

func validate(t *testing.T, text string, strict bool) *Report {
	t.Helper()
	tree, err := document.Parse([]byte(text))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}
	report, err := NewValidator(tree, strict).Validate()
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return report
}

const validProject = `version: 1
default_environment: test-meltano-environment
database_uri: sqlite:///$MELTANO_PROJECT_ROOT/.meltano/meltano.db
environments:
  - name: test-meltano-environment
    env:
      GREETING: hello
plugins:
  extractors:
    - name: tap-meltano-yml
      settings:
        - name: token
          description: API token
          sensitive: true
  loaders:
    - name: target-meltano-yml
  mappers:
    - name: map-meltano-yml
      mappings:
        - name: rename-fields
schedules:
  - name: daily-sync
    extractor: tap-meltano-yml
    loader: target-meltano-yml
    transform: skip
    start_date: 2024-01-01
    interval: "@daily"
jobs:
  - name: full-run
    tasks:
      - tap-meltano-yml map-meltano-yml target-meltano-yml
`

func TestValidateCleanProject(t *testing.T) {
	report := validate(t, validProject, false)
	if report.HasErrors() {
		t.Fatalf("expected zero error findings, got %+v", report.Errors())
	}
	if len(report.Warnings()) != 0 {
		t.Errorf("expected zero warnings, got %+v", report.Warnings())
	}
}

func TestValidateRootNotMapping(t *testing.T) {
	tree, err := document.Parse([]byte("- a\n- b\n"))
	if err != nil {
		t.Fatalf("fixture parse failed: %v", err)
	}
	_, err = NewValidator(tree, false).Validate()
	if !errors.Is(err, ErrNotMapping) {
		t.Fatalf("expected ErrNotMapping, got %v", err)
	}
}

func TestValidateMissingVersion(t *testing.T) {
	report := validate(t, "default_environment: dev\nenvironments:\n  - name: dev\n", false)
	if !report.HasErrors() {
		t.Fatal("missing version must be an error")
	}
}

func TestValidateChecksDoNotShortCircuit(t *testing.T) {
	// Three independent problems: no version, bad transform, bad interval.
	report := validate(t, `schedules:
  - name: s1
    transform: maybe
    interval: not-a-schedule
`, false)
	if got := len(report.Errors()); got < 3 {
		t.Errorf("expected at least 3 error findings in one pass, got %d: %+v", got, report.Errors())
	}
}

func TestValidateDuplicateScheduleNames(t *testing.T) {
	report := validate(t, `version: 1
schedules:
  - name: dup
  - name: dup
`, false)

	var dups []Finding
	for _, f := range report.Errors() {
		if strings.Contains(f.Message, "duplicate schedule name") {
			dups = append(dups, f)
		}
	}
	if len(dups) != 1 {
		t.Fatalf("expected exactly one duplicate finding, got %d", len(dups))
	}
	if !strings.Contains(dups[0].Message, "schedules[0]") || !strings.Contains(dups[0].Message, "schedules[1]") {
		t.Errorf("duplicate finding must reference both occurrence paths: %q", dups[0].Message)
	}
}

func TestValidateDefaultEnvironmentUnresolved(t *testing.T) {
	report := validate(t, `version: 1
default_environment: staging
environments:
  - name: dev
`, false)
	found := false
	for _, f := range report.Errors() {
		if f.Path == "default_environment" {
			found = true
		}
	}
	if !found {
		t.Error("unresolved default_environment must be an error finding")
	}
}

func TestValidateIntervals(t *testing.T) {
	cases := []struct {
		interval string
		wantErr  bool
	}{
		{"@daily", false},
		{"@hourly", false},
		{"@once", false},
		{"* * * * *", false},
		{"0 3 * * 1", false},
		{"not-a-schedule", true},
		{"* * * *", true},     // four fields
		{"@fortnightly", true}, // unknown alias
	}
	for _, tc := range cases {
		report := validate(t, "version: 1\nschedules:\n  - name: s\n    interval: \""+tc.interval+"\"\n", false)
		hasIntervalError := false
		for _, f := range report.Errors() {
			if f.Path == "schedules[0].interval" {
				hasIntervalError = true
			}
		}
		if hasIntervalError != tc.wantErr {
			t.Errorf("interval %q: error finding = %v, want %v", tc.interval, hasIntervalError, tc.wantErr)
		}
	}
}

func TestValidateUnresolvedPluginReference(t *testing.T) {
	text := `version: 1
plugins:
  extractors:
    - name: tap-known
schedules:
  - name: s
    extractor: tap-unknown
    loader: target-unknown
jobs:
  - name: j
    tasks:
      - tap-known target-unknown
`
	report := validate(t, text, false)
	if report.HasErrors() {
		t.Errorf("lenient mode: unresolved references must be warnings, got errors %+v", report.Errors())
	}
	if got := len(report.Warnings()); got != 3 {
		t.Errorf("expected 3 unresolved-reference warnings, got %d: %+v", got, report.Warnings())
	}

	strict := validate(t, text, true)
	if got := len(strict.Errors()); got != 3 {
		t.Errorf("strict mode: expected 3 errors, got %d: %+v", got, strict.Errors())
	}
}

func TestValidateWrongKindReference(t *testing.T) {
	// target-x exists, but as a loader; referencing it as an extractor
	// must not resolve.
	report := validate(t, `version: 1
plugins:
  loaders:
    - name: target-x
schedules:
  - name: s
    extractor: target-x
    loader: target-x
`, false)
	count := 0
	for _, f := range report.Warnings() {
		if f.Path == "schedules[0].extractor" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("extractor reference resolved against wrong plugin kind: %+v", report.Warnings())
	}
}

func TestValidateSensitiveMustBeBoolean(t *testing.T) {
	report := validate(t, `version: 1
plugins:
  extractors:
    - name: tap-x
      settings:
        - name: token
          sensitive: "true"
`, false)
	found := false
	for _, f := range report.Errors() {
		if f.Path == "plugins.extractors[0].settings[0].sensitive" {
			found = true
		}
	}
	if !found {
		t.Errorf("string-typed sensitive flag must be an error: %+v", report.Findings)
	}
}

func TestValidateMappingsOnNonMapper(t *testing.T) {
	report := validate(t, `version: 1
plugins:
  extractors:
    - name: tap-x
      mappings:
        - name: oops
`, false)
	if len(report.Warnings()) == 0 {
		t.Error("mappings on a non-mapper plugin should warn")
	}
}

func TestValidateTransformEnum(t *testing.T) {
	for _, valid := range []string{"run", "skip", "only"} {
		report := validate(t, "version: 1\nschedules:\n  - name: s\n    transform: "+valid+"\n", false)
		if report.HasErrors() {
			t.Errorf("transform %q should be accepted: %+v", valid, report.Errors())
		}
	}
}

func TestReportFormat(t *testing.T) {
	report := &Report{}
	report.addError("schedules[0]", "something broke")
	report.addWarning("jobs[1]", "something odd")

	out := report.Format()
	if !strings.Contains(out, "something broke") || !strings.Contains(out, "schedules[0]") {
		t.Errorf("Format missing error details:\n%s", out)
	}
	if !strings.Contains(out, "something odd") {
		t.Errorf("Format missing warning details:\n%s", out)
	}
}
