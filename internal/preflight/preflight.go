package preflight

import (
	"errors"
	"fmt"
	"strings"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/deps"
	"ctrdecrypt/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Report bundles the tool resolution and filesystem checks for one run.
type Report struct {
	Tools  []deps.Status
	Checks []Result
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) Report {
	if cfg == nil {
		return Report{}
	}
	report := Report{Tools: CheckTools(cfg)}
	report.Checks = append(report.Checks,
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckReadableFile("Seed database", cfg.SeedDBPath()),
		CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
		CheckCreatableDirectory("Workspace directory", cfg.Paths.WorkspaceDir),
	)
	return report
}

// Passed reports whether every check and every required tool succeeded.
func (r Report) Passed() bool {
	return r.Err() == nil
}

// Err returns a configuration error naming the first failures, or nil.
func (r Report) Err() error {
	var failures []string
	for _, tool := range r.Tools {
		if !tool.Available && !tool.Optional {
			failures = append(failures, fmt.Sprintf("%s: %s", tool.Name, tool.Detail))
		}
	}
	for _, check := range r.Checks {
		if !check.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", check.Name, check.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check environment",
		strings.Join(failures, "; "), errors.New("preflight failed"))
}

// ToolPath returns the resolved command for the named tool, or "".
func (r Report) ToolPath(name string) string {
	for _, tool := range r.Tools {
		if tool.Name == name && tool.Available {
			return tool.Command
		}
	}
	return ""
}
