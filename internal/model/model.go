package model

import (
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/eltwork/eltctl/internal/document"
	"github.com/eltwork/eltctl/internal/schema"
)

// ErrBuildRefused is returned by Build when the validation report carries
// any error-severity finding. No partial model is ever produced.
var ErrBuildRefused = errors.New("model build refused: validation report contains errors")

// PluginKind partitions the plugin collection
type PluginKind string

const (
	// Extractors pull data from a source system
	Extractors PluginKind = "extractors"
	// Loaders write data to a destination system
	Loaders PluginKind = "loaders"
	// Mappers transform or rename fields between extraction and load
	Mappers PluginKind = "mappers"
)

// PluginKinds returns the recognized kinds in canonical order
func PluginKinds() []PluginKind {
	return []PluginKind{Extractors, Loaders, Mappers}
}

// Transform says what a schedule does about the transform step
type Transform string

const (
	TransformRun  Transform = "run"
	TransformSkip Transform = "skip"
	TransformOnly Transform = "only"
)

// Schedule is a recurring EL(T) run binding an extractor and loader on a
// time interval
type Schedule struct {
	Name      string
	Extractor string
	Loader    string
	Transform Transform
	StartDate time.Time
	Interval  string
}

// Job is a named, ordered chain of plugin invocations. Each element of
// Tasks is one chain: the plugin-name tokens of one whitespace-delimited
// task string, in order.
type Job struct {
	Name  string
	Tasks [][]string
}

// EnvVar is a single environment variable override
type EnvVar struct {
	Name  string
	Value string
}

// Environment is a named set of variable overrides selectable at run time
type Environment struct {
	Name string
	Env  []EnvVar
}

// Lookup finds an override by variable name
func (e *Environment) Lookup(name string) (string, bool) {
	for _, v := range e.Env {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// MergedEnv layers the environment's overrides on top of a base variable
// map and returns the result; base is not modified.
func (e *Environment) MergedEnv(base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(e.Env))
	for k, v := range base {
		out[k] = v
	}
	for _, v := range e.Env {
		out[v.Name] = v.Value
	}
	return out
}

// RedactedValue is the sentinel shown in place of sensitive setting values
const RedactedValue = "(redacted)"

// Setting describes one plugin configuration knob
type Setting struct {
	Name        string
	Description string
	Sensitive   bool
}

// Redact returns the value as fit for display: sensitive settings come
// back as the redaction sentinel.
func (s Setting) Redact(value string) string {
	if s.Sensitive {
		return RedactedValue
	}
	return value
}

// Mapping is a named sub-transform carried by mapper plugins
type Mapping struct {
	Name string
}

// Plugin is one declared plugin of a given kind
type Plugin struct {
	Name     string
	Kind     PluginKind
	Settings []Setting
	Mappings []Mapping
}

// Project is the immutable typed view over a validated descriptor tree.
// It is rebuilt wholesale on every load.
type Project struct {
	Version            int
	DefaultEnvironment string
	DatabaseURI        string
	IncludePaths       []string

	schedules    []*Schedule
	jobs         []*Job
	environments []*Environment
	plugins      map[PluginKind][]*Plugin

	scheduleIndex map[string]*Schedule
	jobIndex      map[string]*Job
	envIndex      map[string]*Environment
	pluginIndex   map[PluginKind]map[string]*Plugin
}

// ScheduleByName looks up a schedule
func (p *Project) ScheduleByName(name string) (*Schedule, bool) {
	s, ok := p.scheduleIndex[name]
	return s, ok
}

// JobByName looks up a job
func (p *Project) JobByName(name string) (*Job, bool) {
	j, ok := p.jobIndex[name]
	return j, ok
}

// EnvironmentByName looks up an environment
func (p *Project) EnvironmentByName(name string) (*Environment, bool) {
	e, ok := p.envIndex[name]
	return e, ok
}

// PluginByKindAndName looks up a plugin within one kind
func (p *Project) PluginByKindAndName(kind PluginKind, name string) (*Plugin, bool) {
	pl, ok := p.pluginIndex[kind][name]
	return pl, ok
}

// Schedules iterates schedules in declared order
func (p *Project) Schedules() iter.Seq[*Schedule] {
	return func(yield func(*Schedule) bool) {
		for _, s := range p.schedules {
			if !yield(s) {
				return
			}
		}
	}
}

// Jobs iterates jobs in declared order
func (p *Project) Jobs() iter.Seq[*Job] {
	return func(yield func(*Job) bool) {
		for _, j := range p.jobs {
			if !yield(j) {
				return
			}
		}
	}
}

// Environments iterates environments in declared order
func (p *Project) Environments() iter.Seq[*Environment] {
	return func(yield func(*Environment) bool) {
		for _, e := range p.environments {
			if !yield(e) {
				return
			}
		}
	}
}

// Plugins iterates the plugins of one kind in declared order
func (p *Project) Plugins(kind PluginKind) iter.Seq[*Plugin] {
	return func(yield func(*Plugin) bool) {
		for _, pl := range p.plugins[kind] {
			if !yield(pl) {
				return
			}
		}
	}
}

// ParseTaskChain splits a whitespace-delimited task string into its
// ordered plugin-name tokens
func ParseTaskChain(chain string) []string {
	return strings.Fields(chain)
}

// Build constructs the typed model from a validated tree. The report
// decides whether to proceed at all: any error finding refuses the build.
func Build(tree *document.Node, report *schema.Report) (*Project, error) {
	if report != nil && report.HasErrors() {
		return nil, ErrBuildRefused
	}

	p := &Project{
		plugins:       make(map[PluginKind][]*Plugin),
		scheduleIndex: make(map[string]*Schedule),
		jobIndex:      make(map[string]*Job),
		envIndex:      make(map[string]*Environment),
		pluginIndex:   make(map[PluginKind]map[string]*Plugin),
	}

	if v, ok := tree.Get("version"); ok {
		p.Version, _ = v.Int()
	}
	if v, ok := tree.Get("default_environment"); ok {
		p.DefaultEnvironment = v.Str()
	}
	if v, ok := tree.Get("database_uri"); ok {
		p.DatabaseURI = v.Str()
	}
	if v, ok := tree.Get("include_paths"); ok && v.IsSequence() {
		for _, item := range v.Items {
			if item.IsScalar() {
				p.IncludePaths = append(p.IncludePaths, item.Str())
			}
		}
	}

	buildSchedules(p, tree)
	buildJobs(p, tree)
	buildEnvironments(p, tree)
	buildPlugins(p, tree)
	return p, nil
}

func buildSchedules(p *Project, tree *document.Node) {
	for _, entry := range sequenceItems(tree, "schedules") {
		s := &Schedule{
			Name:      fieldStr(entry, "name"),
			Extractor: fieldStr(entry, "extractor"),
			Loader:    fieldStr(entry, "loader"),
			Transform: Transform(fieldStr(entry, "transform")),
			Interval:  fieldStr(entry, "interval"),
		}
		if start, ok := entry.Get("start_date"); ok {
			s.StartDate = parseTimestamp(start.Str())
		}
		p.schedules = append(p.schedules, s)
		p.scheduleIndex[s.Name] = s
	}
}

func buildJobs(p *Project, tree *document.Node) {
	for _, entry := range sequenceItems(tree, "jobs") {
		j := &Job{Name: fieldStr(entry, "name")}
		if tasks, ok := entry.Get("tasks"); ok && tasks.IsSequence() {
			for _, chain := range tasks.Items {
				if chain.IsScalar() {
					j.Tasks = append(j.Tasks, ParseTaskChain(chain.Str()))
				}
			}
		}
		p.jobs = append(p.jobs, j)
		p.jobIndex[j.Name] = j
	}
}

func buildEnvironments(p *Project, tree *document.Node) {
	for _, entry := range sequenceItems(tree, "environments") {
		e := &Environment{Name: fieldStr(entry, "name")}
		if env, ok := entry.Get("env"); ok && env.IsMapping() {
			for _, key := range env.Keys() {
				val, _ := env.Get(key)
				e.Env = append(e.Env, EnvVar{Name: key, Value: val.Str()})
			}
		}
		p.environments = append(p.environments, e)
		p.envIndex[e.Name] = e
	}
}

func buildPlugins(p *Project, tree *document.Node) {
	plugins, ok := tree.Get("plugins")
	if !ok || !plugins.IsMapping() {
		return
	}
	for _, kind := range PluginKinds() {
		coll, ok := plugins.Get(string(kind))
		if !ok || !coll.IsSequence() {
			continue
		}
		index := make(map[string]*Plugin)
		for _, entry := range coll.Items {
			if !entry.IsMapping() {
				continue
			}
			pl := &Plugin{Name: fieldStr(entry, "name"), Kind: kind}
			if settings, ok := entry.Get("settings"); ok && settings.IsSequence() {
				for _, s := range settings.Items {
					if !s.IsMapping() {
						continue
					}
					setting := Setting{
						Name:        fieldStr(s, "name"),
						Description: fieldStr(s, "description"),
					}
					if sensitive, ok := s.Get("sensitive"); ok {
						setting.Sensitive, _ = sensitive.Bool()
					}
					pl.Settings = append(pl.Settings, setting)
				}
			}
			if mappings, ok := entry.Get("mappings"); ok && mappings.IsSequence() {
				for _, m := range mappings.Items {
					if m.IsMapping() {
						pl.Mappings = append(pl.Mappings, Mapping{Name: fieldStr(m, "name")})
					}
				}
			}
			p.plugins[kind] = append(p.plugins[kind], pl)
			index[pl.Name] = pl
		}
		p.pluginIndex[kind] = index
	}
}

func sequenceItems(tree *document.Node, key string) []*document.Node {
	n, ok := tree.Get(key)
	if !ok || !n.IsSequence() {
		return nil
	}
	var out []*document.Node
	for _, item := range n.Items {
		if item.IsMapping() {
			out = append(out, item)
		}
	}
	return out
}

func fieldStr(entry *document.Node, key string) string {
	if v, ok := entry.Get(key); ok {
		return v.Str()
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
