package toolrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"ctrdecrypt/internal/services"
)

// waitDelay bounds how long Run waits for output pipes after the tool is
// killed; grandchildren may keep them open.
const waitDelay = 2 * time.Second

// Invocation describes one external tool call.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
	Stdin  string
}

// Result captures what the tool printed and how it exited.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// CommandExecutor runs tools as real subprocesses.
type CommandExecutor struct {
	// Wine is the launcher used for ".exe" tools on non-Windows hosts.
	Wine string
}

// NewCommandExecutor returns an executor that launches .exe tools through wine
// when the host is not Windows.
func NewCommandExecutor() CommandExecutor {
	return CommandExecutor{Wine: "wine"}
}

// Run executes the invocation. A non-zero exit code is reported in the Result
// and is not an error; only failures to start or a context deadline are.
func (e CommandExecutor) Run(ctx context.Context, inv Invocation) (Result, error) {
	name, args := e.commandLine(inv)
	if name == "" {
		return Result{ExitCode: -1}, services.Wrap(services.ErrConfiguration, "toolrun", "run", "binary required", nil)
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.WaitDelay = waitDelay
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	started := time.Now()
	err := cmd.Run()
	result := Result{ExitCode: 0, Output: output.String(), Duration: time.Since(started)}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, services.Wrap(services.ErrTimeout, "toolrun", filepath.Base(inv.Binary), "deadline exceeded", ctxErr)
		}
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	result.ExitCode = -1
	return result, services.Wrap(services.ErrExternalTool, "toolrun", filepath.Base(inv.Binary), "start command", err)
}

func (e CommandExecutor) commandLine(inv Invocation) (string, []string) {
	binary := strings.TrimSpace(inv.Binary)
	if binary == "" {
		return "", nil
	}
	if NeedsWine(binary) {
		wine := strings.TrimSpace(e.Wine)
		if wine == "" {
			wine = "wine"
		}
		return wine, append([]string{binary}, inv.Args...)
	}
	return binary, append([]string(nil), inv.Args...)
}

// NeedsWine reports whether the binary is a Windows build that must be
// launched through wine on this host.
func NeedsWine(binary string) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	return strings.EqualFold(filepath.Ext(binary), ".exe")
}

// WithTimeout bounds a single invocation. A non-positive timeout leaves the
// context unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
