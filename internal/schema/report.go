package schema

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Severity classifies a validation finding
type Severity string

const (
	// SeverityError findings block model construction
	SeverityError Severity = "error"
	// SeverityWarning findings are reported but do not block the build
	SeverityWarning Severity = "warning"
)

// Finding is one validation result: a severity, the path of the offending
// node (e.g. schedules[2].interval), and a message
type Finding struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

// Report collects every finding from one validation pass. Checks never
// short-circuit, so a report holds all structural problems found in one go.
type Report struct {
	Findings []Finding `json:"findings"`
}

func (r *Report) addError(path, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityError,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) addWarning(path, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{
		Severity: SeverityWarning,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) add(severity Severity, path, format string, args ...interface{}) {
	if severity == SeverityError {
		r.addError(path, format, args...)
	} else {
		r.addWarning(path, format, args...)
	}
}

// Errors returns the error-severity findings
func (r *Report) Errors() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Warnings returns the warning-severity findings
func (r *Report) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			out = append(out, f)
		}
	}
	return out
}

// HasErrors reports whether any finding carries error severity
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Format returns a human-readable rendering of the report
func (r *Report) Format() string {
	var sb strings.Builder

	errs, warns := r.Errors(), r.Warnings()
	if len(errs) == 0 && len(warns) == 0 {
		color.New(color.FgGreen).Fprintln(&sb, "✓ Project validation passed")
		return sb.String()
	}

	if len(errs) > 0 {
		color.New(color.FgRed).Fprintf(&sb, "✗ Project validation failed with %d error(s)\n", len(errs))
	} else {
		color.New(color.FgYellow).Fprintf(&sb, "✓ Project validation passed with %d warning(s)\n", len(warns))
	}

	for _, f := range errs {
		color.New(color.FgRed, color.Bold).Fprint(&sb, "\nERROR: ")
		sb.WriteString(f.Message)
		sb.WriteString("\n")
		if f.Path != "" {
			fmt.Fprintf(&sb, "  Path: %s\n", f.Path)
		}
	}
	for _, f := range warns {
		color.New(color.FgYellow, color.Bold).Fprint(&sb, "\nWARNING: ")
		sb.WriteString(f.Message)
		sb.WriteString("\n")
		if f.Path != "" {
			fmt.Fprintf(&sb, "  Path: %s\n", f.Path)
		}
	}

	return sb.String()
}
