package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/preflight"
	"ctrdecrypt/internal/services"
	"ctrdecrypt/internal/tally"
	"ctrdecrypt/internal/workflow"
)

var errNothingDecrypted = errors.New("no files were decrypted")

type runOptions struct {
	input     string
	convert   bool
	noConvert bool
	jobs      int
	verbose   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	opts := runOptions{jobs: -1}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Decrypt every 3DS and CIA file in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyRunOverrides(base, opts)
			if err != nil {
				return err
			}
			return executeRun(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Directory holding .3ds and .cia files (overrides paths.input_dir)")
	cmd.Flags().BoolVar(&opts.convert, "convert", false, "Convert decrypted CIA archives to CCI without asking")
	cmd.Flags().BoolVar(&opts.noConvert, "no-convert", false, "Skip CCI conversion without asking")
	cmd.MarkFlagsMutuallyExclusive("convert", "no-convert")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", -1, "Concurrent tasks per batch (0 runs one task per file)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug output on the console")
	return cmd
}

// applyRunOverrides returns a copy of base with the command-line overrides applied.
func applyRunOverrides(base *config.Config, opts runOptions) (*config.Config, error) {
	cfg := *base
	if input := strings.TrimSpace(opts.input); input != "" {
		expanded, err := config.ExpandPath(input)
		if err != nil {
			return nil, fmt.Errorf("resolve input directory: %w", err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("resolve input directory: %w", err)
		}
		cfg.Paths.InputDir = abs
	}
	if opts.jobs >= 0 {
		cfg.Workers.MaxParallel = opts.jobs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func executeRun(cmd *cobra.Command, cfg *config.Config, opts runOptions) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	report := preflight.RunAll(cfg)
	if err := report.Err(); err != nil {
		for _, line := range preflightLines(report, colorize) {
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
		return err
	}

	inputs, err := workflow.Discover(cfg.Paths.InputDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderBanner())

	convert, err := resolveConversion(cfg.Conversion, opts, len(inputs.CIA), cmd.InOrStdin(), out)
	if err != nil {
		return err
	}
	cfg.Conversion.ConvertToCCI = convert

	runID := uuid.NewString()
	runLog, err := logging.OpenRunLog(cfg, runID, cmd.ErrOrStderr(), opts.verbose)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer runLog.Close()

	if inputs.Total() > 0 {
		fmt.Fprintln(out, "  Decrypting...")
	}
	mgr := workflow.NewManager(cfg, runLog.Logger)
	summary, err := mgr.Run(services.WithRunID(cmd.Context(), runID))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(summary, runLog.Path))
	if failed := summary.Failed(); len(failed) > 0 {
		fmt.Fprintln(out, renderFailures(failed))
	}
	if summary.Counters.Total > 0 && summary.Outcome() == tally.OutcomeNone {
		return errNothingDecrypted
	}
	return nil
}

// resolveConversion decides whether the CCI batch runs. Flags win; the
// prompt is shown only when CIA inputs exist, prompting is enabled, and the
// input is a terminal. Otherwise the configured value stands.
func resolveConversion(conv config.Conversion, opts runOptions, ciaCount int, in io.Reader, out io.Writer) (bool, error) {
	switch {
	case opts.convert:
		return true, nil
	case opts.noConvert:
		return false, nil
	case ciaCount == 0 || !conv.Prompt || !isInteractive(in):
		return conv.ConvertToCCI, nil
	}
	return askConversion(in, out, ciaCount)
}

func askConversion(in io.Reader, out io.Writer, ciaCount int) (bool, error) {
	fmt.Fprintf(out, "  %d CIA file(s) found. Convert to CCI?\n", ciaCount)
	fmt.Fprintln(out, "  (Not supported: DLC, Demos, System, TWL, Updates)")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  [Y] Yes  [N] No")
	fmt.Fprint(out, "  Enter: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	fmt.Fprintln(out)
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "1":
		return true, nil
	default:
		return false, nil
	}
}

func isInteractive(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
