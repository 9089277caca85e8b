package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eltwork/eltctl/internal/document"
	"github.com/eltwork/eltctl/internal/model"
)

// writeProject lays out a project directory from a map of relative path
// to file contents and returns the root document path.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return filepath.Join(dir, "project.yml")
}

func TestLoadEndToEnd(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": `version: 1
default_environment: test-meltano-environment
include_paths:
  - subconfig/*.yml
environments:
  - name: test-meltano-environment
plugins:
  extractors:
    - name: tap-meltano-yml
      settings:
        - name: token
          sensitive: true
  loaders:
    - name: target-meltano-yml
  mappers:
    - name: map-meltano-yml
`,
		"subconfig/extra.yml": `schedules:
  - name: nightly
    extractor: tap-meltano-yml
    loader: target-meltano-yml
    interval: "@daily"
jobs:
  - name: full-run
    tasks:
      - tap-meltano-yml map-meltano-yml target-meltano-yml
`,
	})

	result, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Refused {
		t.Fatalf("build refused: %+v", result.Report.Errors())
	}
	if result.LoadID == "" {
		t.Error("missing load ID")
	}
	if len(result.Includes) != 1 {
		t.Fatalf("Includes = %v", result.Includes)
	}
	if len(result.Files()) != 2 {
		t.Errorf("Files = %v", result.Files())
	}

	p := result.Project
	if _, ok := p.ScheduleByName("nightly"); !ok {
		t.Error("schedule from include missing")
	}
	job, ok := p.JobByName("full-run")
	if !ok {
		t.Fatal("job from include missing")
	}
	if len(job.Tasks) != 1 || len(job.Tasks[0]) != 3 {
		t.Errorf("task tokens = %v", job.Tasks)
	}
	pl, _ := p.PluginByKindAndName(model.Extractors, "tap-meltano-yml")
	if len(pl.Settings) != 1 || !pl.Settings[0].Sensitive {
		t.Errorf("sensitive flag lost through full cycle: %+v", pl.Settings)
	}
}

func TestLoadDuplicateAcrossIncludesRefused(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": `version: 1
include_paths:
  - parts/*.yml
`,
		"parts/one.yml": "schedules:\n  - name: dup\n",
		"parts/two.yml": "schedules:\n  - name: dup\n",
	})

	result, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !result.Refused {
		t.Fatal("duplicate schedule across includes must refuse the build")
	}
	if result.Project != nil {
		t.Error("refused result must not carry a model")
	}

	dups := 0
	for _, f := range result.Report.Errors() {
		if strings.Contains(f.Message, `duplicate schedule name "dup"`) {
			dups++
			if !strings.Contains(f.Message, "schedules[0]") || !strings.Contains(f.Message, "schedules[1]") {
				t.Errorf("finding must name both occurrence paths: %q", f.Message)
			}
		}
	}
	if dups != 1 {
		t.Errorf("expected exactly one duplicate finding, got %d", dups)
	}
}

func TestLoadScalarOverrideAcrossIncludes(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": `version: 1
database_uri: sqlite:///base.db
include_paths:
  - override/*.yml
`,
		"override/db.yml": "database_uri: postgresql://later-wins\n",
	})

	result, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Project.DatabaseURI != "postgresql://later-wins" {
		t.Errorf("DatabaseURI = %q, want include override", result.Project.DatabaseURI)
	}
}

func TestLoadParseErrorAborts(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": "version: [unterminated\n",
	})
	_, err := Load(context.Background(), root, Options{})
	var perr *document.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"), Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCancelled(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": "version: 1\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, root, Options{})
	if !IsCancelled(err) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CancelledError should wrap context.Canceled: %v", err)
	}
}

func TestLoadStrictMode(t *testing.T) {
	files := map[string]string{
		"project.yml": `version: 1
jobs:
  - name: j
    tasks:
      - tap-not-declared
`,
	}

	lenient, err := Load(context.Background(), writeProject(t, files), Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if lenient.Refused {
		t.Error("lenient mode must tolerate unresolved references")
	}

	strict, err := Load(context.Background(), writeProject(t, files), Options{Strict: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strict.Refused {
		t.Error("strict mode must refuse unresolved references")
	}
}

func TestLoadFreshModelPerCall(t *testing.T) {
	root := writeProject(t, map[string]string{
		"project.yml": "version: 1\nschedules:\n  - name: s\n    interval: \"@daily\"\n",
	})
	a, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	b, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Project == b.Project {
		t.Error("each load must produce an independent model")
	}
	if a.LoadID == b.LoadID {
		t.Error("load IDs must be unique per call")
	}
}
