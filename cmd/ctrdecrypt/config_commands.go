package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, ctx.configFlag)
			if err != nil {
				return err
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit paths.input_dir and paths.tools_dir before running ctrdecrypt.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// initTarget picks where config init writes: --path, then --config, then
// the default location.
func initTarget(pathFlag string, configFlag *string) (string, error) {
	target := strings.TrimSpace(pathFlag)
	if target == "" && configFlag != nil {
		target = strings.TrimSpace(*configFlag)
	}
	if target == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file and show the resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, line := range configSummaryLines(ctx.configPath, cfg, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// configSummaryLines renders the resolved configuration grouped the way the
// file is laid out. Problems with directories or tools are warnings here;
// doctor is the command that fails on them.
func configSummaryLines(path string, cfg *config.Config, colorize bool) []string {
	file := renderStatusLine("File", statusOK, path, colorize)
	if _, err := os.Stat(path); err != nil {
		file = renderStatusLine("File", statusWarn, path+" (not found; defaults used)", colorize)
	}
	lines := append(renderSectionHeader("Config", colorize), file)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Paths", colorize)...)
	lines = append(lines, warnLines([]preflight.Result{
		preflight.CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		preflight.CheckDirectoryAccess("Tools directory", cfg.Paths.ToolsDir),
		preflight.CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Tools", colorize)...)
	lines = append(lines, toolLines(preflight.CheckTools(cfg), colorize)...)
	lines = append(lines, warnLines([]preflight.Result{
		preflight.CheckReadableFile("Seed database", cfg.SeedDBPath()),
	}, colorize)...)
	lines = append(lines, renderStatusLine("Timeout", statusInfo, cfg.ToolTimeout().String(), colorize))

	parallel := "one task per input"
	if cfg.Workers.MaxParallel > 0 {
		parallel = fmt.Sprintf("%d", cfg.Workers.MaxParallel)
	}
	ledger := "disabled"
	if cfg.Ledger.Enabled {
		ledger = cfg.Ledger.Path
	}
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Run", colorize)...)
	lines = append(lines,
		renderStatusLine("Convert to CCI", statusInfo, yesNo(cfg.Conversion.ConvertToCCI), colorize),
		renderStatusLine("Max parallel", statusInfo, parallel, colorize),
		renderStatusLine("Ledger", statusInfo, ledger, colorize),
		renderStatusLine("Log format", statusInfo, cfg.Logging.Format+" ("+cfg.Logging.Level+")", colorize),
	)
	return lines
}

func warnLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return lines
}
