package schema

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eltwork/eltctl/internal/document"
)

// ErrNotMapping is returned when the root of the merged tree is not a
// mapping; it is the only way Validate itself can fail.
var ErrNotMapping = errors.New("root document is not a mapping")

// PluginKinds lists the recognized plugin collections in canonical order
var PluginKinds = []string{"extractors", "loaders", "mappers"}

// transform enum values for schedules
var transformValues = map[string]struct{}{
	"run":  {},
	"skip": {},
	"only": {},
}

// Validator checks a merged project tree for structural and referential
// problems. Every check runs; findings accumulate into one report.
type Validator struct {
	tree   *document.Node
	strict bool
}

// NewValidator creates a validator. In strict mode unresolved plugin
// references are errors instead of warnings.
func NewValidator(tree *document.Node, strict bool) *Validator {
	return &Validator{tree: tree, strict: strict}
}

// Validate runs all checks and returns the accumulated report. It fails
// only when the root is not a mapping.
func (v *Validator) Validate() (*Report, error) {
	if !v.tree.IsMapping() {
		return nil, ErrNotMapping
	}

	report := &Report{}
	v.validateTopLevel(report)
	v.validateSchedules(report)
	v.validateJobs(report)
	v.validateEnvironments(report)
	v.validatePlugins(report)
	v.validateDefaultEnvironment(report)
	v.validateReferences(report)
	return report, nil
}

// validateTopLevel checks the recognized top-level keys for shape and type
func (v *Validator) validateTopLevel(report *Report) {
	version, ok := v.tree.Get("version")
	if !ok {
		report.addError("version", "required top-level key %q is missing", "version")
	} else if _, isInt := version.Int(); !isInt {
		report.addError("version", "version must be an integer, got %s %q", version.Kind, version.Str())
	}

	if env, ok := v.tree.Get("default_environment"); ok && !env.IsScalar() {
		report.addError("default_environment", "default_environment must be a string, got %s", env.Kind)
	}

	if uri, ok := v.tree.Get("database_uri"); ok {
		if !uri.IsScalar() {
			report.addError("database_uri", "database_uri must be a string, got %s", uri.Kind)
		} else if u, err := url.Parse(uri.Str()); err != nil || u.Scheme == "" {
			report.addWarning("database_uri", "database_uri %q does not look like a URI", uri.Str())
		}
	}

	if paths, ok := v.tree.Get("include_paths"); ok {
		if !paths.IsSequence() {
			report.addError("include_paths", "include_paths must be a sequence, got %s", paths.Kind)
		} else {
			for i, item := range paths.Items {
				if !item.IsScalar() || item.IsNull() {
					report.addError(fmt.Sprintf("include_paths[%d]", i), "include path must be a glob string")
				}
			}
		}
	}

	for _, key := range []string{"schedules", "jobs", "environments"} {
		if n, ok := v.tree.Get(key); ok && !n.IsSequence() {
			report.addError(key, "%s must be a sequence, got %s", key, n.Kind)
		}
	}

	if plugins, ok := v.tree.Get("plugins"); ok {
		if !plugins.IsMapping() {
			report.addError("plugins", "plugins must be a mapping, got %s", plugins.Kind)
			return
		}
		known := make(map[string]struct{}, len(PluginKinds))
		for _, kind := range PluginKinds {
			known[kind] = struct{}{}
		}
		for _, kind := range plugins.Keys() {
			if _, ok := known[kind]; !ok {
				report.addWarning(fmt.Sprintf("plugins.%s", kind), "unknown plugin kind %q", kind)
			}
		}
	}
}

// collection returns the items of a top-level sequence key, or nil
func (v *Validator) collection(key string) []*document.Node {
	n, ok := v.tree.Get(key)
	if !ok || !n.IsSequence() {
		return nil
	}
	return n.Items
}

// checkName enforces a required, unique name on a collection entry. seen
// maps name to the path of its first occurrence. Returns the name, or ""
// when missing.
func checkName(report *Report, entry *document.Node, path, what string, seen map[string]string) string {
	name, ok := entry.Get("name")
	if !ok || !name.IsScalar() || name.Str() == "" {
		report.addError(path+".name", "%s name is required", what)
		return ""
	}
	if first, dup := seen[name.Str()]; dup {
		report.addError(path, "duplicate %s name %q (%s and %s)", what, name.Str(), first, path)
		return name.Str()
	}
	seen[name.Str()] = path
	return name.Str()
}

func (v *Validator) validateSchedules(report *Report) {
	seen := make(map[string]string)
	for i, entry := range v.collection("schedules") {
		path := fmt.Sprintf("schedules[%d]", i)
		if !entry.IsMapping() {
			report.addError(path, "schedule must be a mapping, got %s", entry.Kind)
			continue
		}
		checkName(report, entry, path, "schedule", seen)

		if transform, ok := entry.Get("transform"); ok {
			if _, valid := transformValues[transform.Str()]; !transform.IsScalar() || !valid {
				report.addError(path+".transform", "transform must be one of run, skip, only; got %q", transform.Str())
			}
		}

		if interval, ok := entry.Get("interval"); ok {
			if !interval.IsScalar() {
				report.addError(path+".interval", "interval must be a string, got %s", interval.Kind)
			} else if err := checkInterval(interval.Str()); err != nil {
				report.addError(path+".interval", "%v", err)
			}
		}

		if start, ok := entry.Get("start_date"); ok && !validTimestamp(start) {
			report.addWarning(path+".start_date", "start_date %q is not a recognizable timestamp", start.Str())
		}
	}
}

func (v *Validator) validateJobs(report *Report) {
	seen := make(map[string]string)
	for i, entry := range v.collection("jobs") {
		path := fmt.Sprintf("jobs[%d]", i)
		if !entry.IsMapping() {
			report.addError(path, "job must be a mapping, got %s", entry.Kind)
			continue
		}
		checkName(report, entry, path, "job", seen)

		tasks, ok := entry.Get("tasks")
		if !ok {
			continue
		}
		if !tasks.IsSequence() {
			report.addError(path+".tasks", "tasks must be a sequence, got %s", tasks.Kind)
			continue
		}
		for j, chain := range tasks.Items {
			if !chain.IsScalar() || chain.IsNull() {
				report.addError(fmt.Sprintf("%s.tasks[%d]", path, j), "task chain must be a whitespace-delimited plugin string")
			}
		}
	}
}

func (v *Validator) validateEnvironments(report *Report) {
	seen := make(map[string]string)
	for i, entry := range v.collection("environments") {
		path := fmt.Sprintf("environments[%d]", i)
		if !entry.IsMapping() {
			report.addError(path, "environment must be a mapping, got %s", entry.Kind)
			continue
		}
		checkName(report, entry, path, "environment", seen)

		if env, ok := entry.Get("env"); ok {
			if !env.IsMapping() {
				report.addError(path+".env", "env must be a mapping of variable overrides, got %s", env.Kind)
				continue
			}
			for _, key := range env.Keys() {
				val, _ := env.Get(key)
				if !val.IsScalar() {
					report.addError(fmt.Sprintf("%s.env.%s", path, key), "environment variable value must be a scalar")
				}
			}
		}
	}
}

func (v *Validator) validatePlugins(report *Report) {
	plugins, ok := v.tree.Get("plugins")
	if !ok || !plugins.IsMapping() {
		return
	}

	for _, kind := range plugins.Keys() {
		coll, _ := plugins.Get(kind)
		if !coll.IsSequence() {
			report.addError(fmt.Sprintf("plugins.%s", kind), "plugin kind must hold a sequence, got %s", coll.Kind)
			continue
		}
		seen := make(map[string]string)
		for i, entry := range coll.Items {
			path := fmt.Sprintf("plugins.%s[%d]", kind, i)
			if !entry.IsMapping() {
				report.addError(path, "plugin must be a mapping, got %s", entry.Kind)
				continue
			}
			checkName(report, entry, path, kind+" plugin", seen)
			v.validateSettings(report, entry, path)

			mappings, hasMappings := entry.Get("mappings")
			if kind == "mappers" {
				if hasMappings {
					v.validateMappings(report, mappings, path)
				}
			} else if hasMappings {
				report.addWarning(path+".mappings", "mappings only apply to mapper plugins")
			}
		}
	}
}

func (v *Validator) validateSettings(report *Report, plugin *document.Node, path string) {
	settings, ok := plugin.Get("settings")
	if !ok {
		return
	}
	if !settings.IsSequence() {
		report.addError(path+".settings", "settings must be a sequence, got %s", settings.Kind)
		return
	}
	for i, setting := range settings.Items {
		spath := fmt.Sprintf("%s.settings[%d]", path, i)
		if !setting.IsMapping() {
			report.addError(spath, "setting must be a mapping, got %s", setting.Kind)
			continue
		}
		if name, ok := setting.Get("name"); !ok || name.Str() == "" {
			report.addError(spath+".name", "setting name is required")
		}
		if sensitive, ok := setting.Get("sensitive"); ok {
			if _, isBool := sensitive.Bool(); !isBool {
				report.addError(spath+".sensitive", "sensitive must be a boolean, got %q", sensitive.Str())
			}
		}
	}
}

func (v *Validator) validateMappings(report *Report, mappings *document.Node, path string) {
	if !mappings.IsSequence() {
		report.addError(path+".mappings", "mappings must be a sequence, got %s", mappings.Kind)
		return
	}
	for i, m := range mappings.Items {
		mpath := fmt.Sprintf("%s.mappings[%d]", path, i)
		if !m.IsMapping() {
			report.addError(mpath, "mapping must be a mapping, got %s", m.Kind)
			continue
		}
		if name, ok := m.Get("name"); !ok || name.Str() == "" {
			report.addError(mpath+".name", "mapping name is required")
		}
	}
}

func (v *Validator) validateDefaultEnvironment(report *Report) {
	def, ok := v.tree.Get("default_environment")
	if !ok || !def.IsScalar() || def.Str() == "" {
		return
	}
	names := v.collectNames("environments")
	if _, found := names[def.Str()]; !found {
		report.addError("default_environment", "default_environment %q does not match any declared environment", def.Str())
	}
}

// validateReferences resolves plugin names used by schedules and job task
// chains against the declared plugin collections. Unresolved references
// are warnings, or errors in strict mode, so forward references and
// externally installed plugins stay tolerable by default.
func (v *Validator) validateReferences(report *Report) {
	severity := SeverityWarning
	if v.strict {
		severity = SeverityError
	}

	byKind := v.pluginNamesByKind()
	all := make(map[string]struct{})
	for _, names := range byKind {
		for name := range names {
			all[name] = struct{}{}
		}
	}

	for i, entry := range v.collection("schedules") {
		if !entry.IsMapping() {
			continue
		}
		path := fmt.Sprintf("schedules[%d]", i)
		for _, ref := range []struct{ field, kind string }{
			{"extractor", "extractors"},
			{"loader", "loaders"},
		} {
			node, ok := entry.Get(ref.field)
			if !ok || !node.IsScalar() || node.Str() == "" {
				continue
			}
			if _, found := byKind[ref.kind][node.Str()]; !found {
				report.add(severity, fmt.Sprintf("%s.%s", path, ref.field),
					"%s %q is not a declared %s plugin", ref.field, node.Str(), ref.kind[:len(ref.kind)-1])
			}
		}
	}

	for i, entry := range v.collection("jobs") {
		if !entry.IsMapping() {
			continue
		}
		tasks, ok := entry.Get("tasks")
		if !ok || !tasks.IsSequence() {
			continue
		}
		for j, chain := range tasks.Items {
			if !chain.IsScalar() {
				continue
			}
			for _, token := range strings.Fields(chain.Str()) {
				if _, found := all[token]; !found {
					report.add(severity, fmt.Sprintf("jobs[%d].tasks[%d]", i, j),
						"task references undeclared plugin %q", token)
				}
			}
		}
	}
}

// collectNames gathers the name of each well-formed entry in a top-level
// collection
func (v *Validator) collectNames(key string) map[string]struct{} {
	names := make(map[string]struct{})
	for _, entry := range v.collection(key) {
		if !entry.IsMapping() {
			continue
		}
		if name, ok := entry.Get("name"); ok && name.IsScalar() {
			names[name.Str()] = struct{}{}
		}
	}
	return names
}

func (v *Validator) pluginNamesByKind() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	plugins, ok := v.tree.Get("plugins")
	if !ok || !plugins.IsMapping() {
		return out
	}
	for _, kind := range plugins.Keys() {
		coll, _ := plugins.Get(kind)
		if !coll.IsSequence() {
			continue
		}
		names := make(map[string]struct{})
		for _, entry := range coll.Items {
			if !entry.IsMapping() {
				continue
			}
			if name, ok := entry.Get("name"); ok && name.IsScalar() {
				names[name.Str()] = struct{}{}
			}
		}
		out[kind] = names
	}
	return out
}

// timestampLayouts are the start_date spellings accepted beyond what the
// YAML parser already resolves to !!timestamp
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func validTimestamp(n *document.Node) bool {
	if !n.IsScalar() {
		return false
	}
	if n.Tag == "!!timestamp" {
		return true
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, n.Str()); err == nil {
			return true
		}
	}
	return false
}
