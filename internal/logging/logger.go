package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ctrdecrypt/internal/config"
)

// RunLogPattern matches the per-run log files written to the log directory.
const RunLogPattern = "ctrdecrypt-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	Writer      io.Writer
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}
	addSource := opts.Development

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	switch format {
	case "json":
		return newJSONHandler(writer, levelVar, addSource), nil
	case "console":
		return newPrettyHandler(writer, levelVar, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// RunLog is a logger bound to one run. Records go to the console and to a
// per-run file in the log directory, each tagged with the run identifier.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// Close flushes and closes the per-run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// OpenRunLog creates the run logger described by cfg. Console output honours
// the configured level unless verbose is set; the file always records debug
// detail in the configured format.
func OpenRunLog(cfg *config.Config, runID string, console io.Writer, verbose bool) (*RunLog, error) {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	consoleHandler, err := newHandler(Options{Level: level, Format: "console", Writer: console})
	if err != nil {
		return nil, err
	}

	run := &RunLog{}
	handlers := []slog.Handler{consoleHandler}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		run.Path = filepath.Join(cfg.Paths.LogDir, runLogName(time.Now()))
		file, err := os.OpenFile(run.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", run.Path, err)
		}
		run.file = file
		fileHandler, err := newHandler(Options{Level: "debug", Format: cfg.Logging.Format, Writer: file, Development: true})
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		handlers = append(handlers, fileHandler)
	}

	run.Logger = slog.New(newRunIDHandler(TeeHandler(handlers...), runID))
	return run, nil
}

func runLogName(ts time.Time) string {
	return "ctrdecrypt-" + ts.Format("20060102-150405") + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
