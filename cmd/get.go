package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eltwork/eltctl/internal/loader"
	"github.com/eltwork/eltctl/internal/model"
)

// getCmd lists project collections in declared order
var getCmd = &cobra.Command{
	Use:   "get TYPE [project-file]",
	Short: "List project resources",
	Long: `List resources declared by a project descriptor, in declared order.
The output format can be controlled using the --output flag.
Available types: schedules, jobs, environments, plugins.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resourceType := args[0]
		projectFile := projectFileArg(args[1:])

		result, err := loader.Load(cmd.Context(), projectFile, loader.Options{Strict: strict})
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		if result.Refused {
			fmt.Println(result.Report.Format())
			os.Exit(1)
		}

		project := result.Project
		switch resourceType {
		case "schedules":
			return printSchedules(project)
		case "jobs":
			return printJobs(project)
		case "environments":
			return printEnvironments(project)
		case "plugins":
			return printPlugins(project)
		default:
			return fmt.Errorf("invalid resource type: %s. Must be one of: schedules, jobs, environments, plugins", resourceType)
		}
	},
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func printSchedules(p *model.Project) error {
	if output == "yaml" {
		type row struct {
			Name      string `yaml:"name"`
			Extractor string `yaml:"extractor,omitempty"`
			Loader    string `yaml:"loader,omitempty"`
			Transform string `yaml:"transform,omitempty"`
			Interval  string `yaml:"interval,omitempty"`
		}
		var rows []row
		for s := range p.Schedules() {
			rows = append(rows, row{s.Name, s.Extractor, s.Loader, string(s.Transform), s.Interval})
		}
		return yaml.NewEncoder(os.Stdout).Encode(rows)
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tEXTRACTOR\tLOADER\tTRANSFORM\tINTERVAL")
	for s := range p.Schedules() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Extractor, s.Loader, s.Transform, s.Interval)
	}
	return w.Flush()
}

func printJobs(p *model.Project) error {
	if output == "yaml" {
		type row struct {
			Name  string     `yaml:"name"`
			Tasks [][]string `yaml:"tasks,omitempty"`
		}
		var rows []row
		for j := range p.Jobs() {
			rows = append(rows, row{j.Name, j.Tasks})
		}
		return yaml.NewEncoder(os.Stdout).Encode(rows)
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tTASKS")
	for j := range p.Jobs() {
		chains := make([]string, len(j.Tasks))
		for i, chain := range j.Tasks {
			chains[i] = strings.Join(chain, " -> ")
		}
		fmt.Fprintf(w, "%s\t%s\n", j.Name, strings.Join(chains, "; "))
	}
	return w.Flush()
}

func printEnvironments(p *model.Project) error {
	if output == "yaml" {
		type row struct {
			Name string            `yaml:"name"`
			Env  map[string]string `yaml:"env,omitempty"`
		}
		var rows []row
		for e := range p.Environments() {
			rows = append(rows, row{e.Name, e.MergedEnv(nil)})
		}
		return yaml.NewEncoder(os.Stdout).Encode(rows)
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tOVERRIDES\tDEFAULT")
	for e := range p.Environments() {
		isDefault := ""
		if e.Name == p.DefaultEnvironment {
			isDefault = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", e.Name, len(e.Env), isDefault)
	}
	return w.Flush()
}

func printPlugins(p *model.Project) error {
	if output == "yaml" {
		type settingRow struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description,omitempty"`
			Sensitive   bool   `yaml:"sensitive,omitempty"`
		}
		type row struct {
			Name     string       `yaml:"name"`
			Kind     string       `yaml:"kind"`
			Settings []settingRow `yaml:"settings,omitempty"`
			Mappings []string     `yaml:"mappings,omitempty"`
		}
		var rows []row
		for _, kind := range model.PluginKinds() {
			for pl := range p.Plugins(kind) {
				r := row{Name: pl.Name, Kind: string(kind)}
				for _, s := range pl.Settings {
					r.Settings = append(r.Settings, settingRow{s.Name, s.Description, s.Sensitive})
				}
				for _, m := range pl.Mappings {
					r.Mappings = append(r.Mappings, m.Name)
				}
				rows = append(rows, r)
			}
		}
		return yaml.NewEncoder(os.Stdout).Encode(rows)
	}

	w := newTable()
	fmt.Fprintln(w, "KIND\tNAME\tSETTINGS")
	for _, kind := range model.PluginKinds() {
		for pl := range p.Plugins(kind) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, pl.Name, formatSettings(pl.Settings))
		}
	}
	return w.Flush()
}

// formatSettings renders the settings column. Sensitive settings show the
// redaction sentinel in place of their description.
func formatSettings(settings []model.Setting) string {
	names := make([]string, len(settings))
	for i, s := range settings {
		if s.Sensitive {
			names[i] = fmt.Sprintf("%s=%s", s.Name, s.Redact(s.Description))
		} else {
			names[i] = s.Name
		}
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(getCmd)
}
