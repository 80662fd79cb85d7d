package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but not fatal.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "warehouse.dsn"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where convenient.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over a decoded Config and returns all
// findings. It never mutates c; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and run logs will use the default job name",
		})
	}

	issues = append(issues, validateStore(c.Store)...)
	issues = append(issues, validateWarehouse(c.Warehouse)...)
	issues = append(issues, validateParser(c.Parser)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	return issues
}

func validateStore(s StoreConfig) []Issue {
	var issues []Issue
	switch s.Kind {
	case "fs":
		if strings.TrimSpace(s.Root) == "" {
			issues = append(issues, Issue{SeverityError, "store.root", "root directory is required for kind \"fs\""})
		}
	case "s3":
		// Region and endpoint both have env fallbacks; nothing is mandatory.
	case "":
		issues = append(issues, Issue{SeverityError, "store.kind", "store.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "store.kind",
			fmt.Sprintf("unknown store kind %q (expected \"fs\" or \"s3\")", s.Kind)})
	}
	if strings.TrimSpace(s.Container) == "" {
		issues = append(issues, Issue{SeverityError, "store.container", "container must not be empty"})
	}
	return issues
}

func validateWarehouse(w WarehouseConfig) []Issue {
	var issues []Issue
	if strings.TrimSpace(w.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.kind", "warehouse.kind must not be empty"})
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.dsn", "dsn must not be empty"})
	}
	if strings.TrimSpace(w.Table) == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.table", "table must not be empty"})
	}
	return issues
}

func validateParser(p ParserConfig) []Issue {
	var issues []Issue
	if len([]rune(p.Comma)) > 1 {
		issues = append(issues, Issue{SeverityWarning, "parser.comma",
			fmt.Sprintf("comma %q has more than one rune; only the first is used", p.Comma)})
	}
	switch strings.ToLower(p.Encoding) {
	case "", "utf8", "utf-8", "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252":
	default:
		issues = append(issues, Issue{SeverityError, "parser.encoding",
			fmt.Sprintf("unsupported encoding %q", p.Encoding)})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{SeverityWarning, "runtime.workers", "negative workers treated as sequential"})
	}
	if r.MaxRows < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.max_rows", "max_rows must not be negative"})
	}
	if r.ReadTimeoutSeconds < 0 || r.LoadTimeoutSeconds < 0 {
		issues = append(issues, Issue{SeverityError, "runtime", "timeouts must not be negative"})
	}
	return issues
}
