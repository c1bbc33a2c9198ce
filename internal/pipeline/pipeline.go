package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/services"
	"ctrdecrypt/internal/services/ctrtool"
	"ctrdecrypt/internal/services/decryptor"
	"ctrdecrypt/internal/services/makerom"
	"ctrdecrypt/internal/services/toolrun"
	"ctrdecrypt/internal/textutil"
	"ctrdecrypt/internal/workspace"
)

const decryptedMarker = "-decrypted"

// Options configures a Pipeline.
type Options struct {
	// ConvertPending suppresses success counts for CIA outputs that the
	// conversion batch will evaluate again.
	ConvertPending bool
	Timeout        time.Duration
	Executor       toolrun.Executor
	Logger         *slog.Logger
}

// Pipeline runs the per-file state machines.
type Pipeline struct {
	convertPending bool
	timeout        time.Duration
	exec           toolrun.Executor
	logger         *slog.Logger
}

// New constructs a Pipeline. A nil executor runs the real tools.
func New(opts Options) *Pipeline {
	exec := opts.Executor
	if exec == nil {
		exec = toolrun.NewCommandExecutor()
	}
	return &Pipeline{
		convertPending: opts.ConvertPending,
		timeout:        opts.Timeout,
		exec:           exec,
		logger:         logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

type toolset struct {
	inspector *ctrtool.Client
	decryptor *decryptor.Client
	builder   *makerom.Client
}

func (p *Pipeline) tools(ws *workspace.Workspace) (toolset, error) {
	inspector, err := ctrtool.New(ws.Inspector, ctrtool.WithExecutor(p.exec), ctrtool.WithTimeout(p.timeout))
	if err != nil {
		return toolset{}, err
	}
	dec, err := decryptor.New(ws.Decryptor, decryptor.WithExecutor(p.exec), decryptor.WithTimeout(p.timeout))
	if err != nil {
		return toolset{}, err
	}
	builder, err := makerom.New(ws.Builder, makerom.WithExecutor(p.exec), makerom.WithTimeout(p.timeout))
	if err != nil {
		return toolset{}, err
	}
	return toolset{inspector: inspector, decryptor: dec, builder: builder}, nil
}

// taskLogger tags log lines with the batch and the file name.
func (p *Pipeline) taskLogger(ctx context.Context, batch Batch, input string) *slog.Logger {
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldTask, filepath.Base(input)))
	if _, ok := services.BatchFromContext(ctx); !ok {
		logger = logger.With(logging.String(logging.FieldBatch, string(batch)))
	}
	return logger
}

// logTool records a tool run at debug level. Exit codes and launch errors do
// not decide the outcome.
func logTool(logger *slog.Logger, tool string, result toolrun.Result, err error) {
	attrs := []logging.Attr{
		logging.String("tool", tool),
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("duration", result.Duration),
	}
	if out := strings.TrimSpace(result.Output); out != "" {
		attrs = append(attrs, logging.String("output", out))
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err), logging.String(logging.FieldErrorHint, services.Hint(err)))
		logging.WarnWithContext(logger, "tool invocation reported an error", "tool_error", attrs...)
		return
	}
	logger.Debug("tool finished", logging.Args(attrs...)...)
}

// outputStem returns the sanitised file stem used to name outputs, and
// whether the input is itself a decrypted output that must be skipped.
func outputStem(input string) (string, bool) {
	stem := textutil.SanitizeStem(input)
	return stem, strings.Contains(strings.ToLower(stem), decryptedMarker)
}

// IsDecryptedName reports whether a file name marks an output of this tool.
func IsDecryptedName(name string) bool {
	return strings.Contains(strings.ToLower(textutil.Stem(name)), decryptedMarker)
}

func finish(res *Result, started time.Time) Result {
	res.Duration = time.Since(started)
	return *res
}

func stageContext(ctx context.Context, stage State) context.Context {
	return services.WithStage(ctx, string(stage))
}
