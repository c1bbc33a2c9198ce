package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ctrdecrypt/internal/preflight"
	"ctrdecrypt/internal/staging"
	"ctrdecrypt/internal/workspace"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and leftover workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			report := preflight.RunAll(cfg)
			for _, line := range preflightLines(report, colorize) {
				fmt.Fprintln(out, line)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Workspaces", colorize) {
				fmt.Fprintln(out, line)
			}
			dirs, err := staging.ListDirectories(cfg.Paths.WorkspaceDir, workspace.DirPrefix)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Workspace directory", statusError, err.Error(), colorize))
			} else if len(dirs) == 0 {
				fmt.Fprintln(out, renderStatusLine("Leftover workspaces", statusOK, "none", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Leftover workspaces", statusWarn,
					fmt.Sprintf("%d found (removed on the next run once older than %s)", len(dirs), cfg.StaleWorkspaceAge()), colorize))
				fmt.Fprintln(out, workspaceTable(dirs, time.Now()))
			}

			if err := report.Err(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func workspaceTable(dirs []staging.DirInfo, now time.Time) string {
	var total int64
	rows := make([][]string, 0, len(dirs))
	for _, dir := range dirs {
		total += dir.Size
		rows = append(rows, []string{
			strings.TrimPrefix(dir.Name, workspace.DirPrefix),
			formatAge(dir.Age(now)),
			humanize.Bytes(uint64(max(dir.Size, 0))),
		})
	}
	return renderTable(tableSpec{
		Headers: []string{"Workspace", "Age", "Size"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight, alignRight},
		Footer:  []string{fmt.Sprintf("%d total", len(dirs)), "", humanize.Bytes(uint64(max(total, 0)))},
	})
}

func formatAge(d time.Duration) string {
	d = d.Truncate(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
