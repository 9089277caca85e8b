package include

import (
	"reflect"
	"testing"
)

func TestMergeConcatenatesCollections(t *testing.T) {
	base := mustParse(t, `schedules:
  - name: base-schedule
jobs:
  - name: base-job
environments:
  - name: dev
`)
	incoming := mustParse(t, `schedules:
  - name: extra-schedule
environments:
  - name: prod
`)

	merged := Merge(base, incoming)

	if got := scheduleNames(t, merged); !reflect.DeepEqual(got, []string{"base-schedule", "extra-schedule"}) {
		t.Errorf("schedules = %v", got)
	}
	envs, _ := merged.Get("environments")
	if envs.Len() != 2 {
		t.Errorf("environments len = %d, want 2", envs.Len())
	}
	jobs, _ := merged.Get("jobs")
	if jobs.Len() != 1 {
		t.Errorf("jobs len = %d, want 1", jobs.Len())
	}
}

func TestMergeScalarsOverride(t *testing.T) {
	base := mustParse(t, "version: 1\ndatabase_uri: sqlite:///a.db\n")
	incoming := mustParse(t, "database_uri: postgresql://replaced\nextra: added\n")

	merged := Merge(base, incoming)

	uri, _ := merged.Get("database_uri")
	if uri.Str() != "postgresql://replaced" {
		t.Errorf("database_uri = %q, want override", uri.Str())
	}
	version, _ := merged.Get("version")
	if v, _ := version.Int(); v != 1 {
		t.Errorf("version = %d, want untouched 1", v)
	}
	if _, ok := merged.Get("extra"); !ok {
		t.Error("new key from incoming document missing")
	}
}

func TestMergePluginsByKind(t *testing.T) {
	base := mustParse(t, `plugins:
  extractors:
    - name: tap-a
  loaders:
    - name: target-x
`)
	incoming := mustParse(t, `plugins:
  extractors:
    - name: tap-b
  mappers:
    - name: map-z
`)

	merged := Merge(base, incoming)

	plugins, _ := merged.Get("plugins")
	if !reflect.DeepEqual(plugins.Keys(), []string{"extractors", "loaders", "mappers"}) {
		t.Errorf("plugin kinds = %v", plugins.Keys())
	}
	extractors, _ := plugins.Get("extractors")
	var names []string
	for _, e := range extractors.Items {
		n, _ := e.Get("name")
		names = append(names, n.Str())
	}
	if !reflect.DeepEqual(names, []string{"tap-a", "tap-b"}) {
		t.Errorf("extractors = %v, want per-kind concatenation", names)
	}
	loaders, _ := plugins.Get("loaders")
	if loaders.Len() != 1 {
		t.Errorf("loaders len = %d, want 1", loaders.Len())
	}
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	base := mustParse(t, "schedules:\n  - name: one\n")
	incoming := mustParse(t, "schedules:\n  - name: two\n")

	Merge(base, incoming)

	if got := scheduleNames(t, base); !reflect.DeepEqual(got, []string{"one"}) {
		t.Errorf("base mutated: %v", got)
	}
	if got := scheduleNames(t, incoming); !reflect.DeepEqual(got, []string{"two"}) {
		t.Errorf("incoming mutated: %v", got)
	}
}

func TestMergeMappingKeyReplacedWholesale(t *testing.T) {
	base := mustParse(t, "options:\n  a: 1\n  b: 2\n")
	incoming := mustParse(t, "options:\n  c: 3\n")

	merged := Merge(base, incoming)

	options, _ := merged.Get("options")
	if !reflect.DeepEqual(options.Keys(), []string{"c"}) {
		t.Errorf("non-plugins mapping should be replaced, got keys %v", options.Keys())
	}
}
