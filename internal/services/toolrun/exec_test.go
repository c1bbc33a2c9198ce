package toolrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"ctrdecrypt/internal/services"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRunCapturesOutputAndDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	bin := t.TempDir()
	work := t.TempDir()
	tool := writeScript(t, bin, "ctrtool", `pwd; echo "args:$*"; touch produced.ncch`)

	res, err := NewCommandExecutor().Run(context.Background(), Invocation{
		Binary: tool,
		Args:   []string{"--seeddb", "seeddb.bin", "game.cia"},
		Dir:    work,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "args:--seeddb seeddb.bin game.cia") {
		t.Fatalf("unexpected output %q", res.Output)
	}
	if _, err := os.Stat(filepath.Join(work, "produced.ncch")); err != nil {
		t.Fatalf("expected tool side effect in working dir: %v", err)
	}
}

func TestRunReportsNonZeroExitWithoutError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	tool := writeScript(t, t.TempDir(), "makerom", "echo failing; exit 3")
	res, err := NewCommandExecutor().Run(context.Background(), Invocation{Binary: tool, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("expected exit status to be reported, not returned: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestRunFeedsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	tool := writeScript(t, t.TempDir(), "decrypt", `read line; echo "got:[$line]"`)
	res, err := NewCommandExecutor().Run(context.Background(), Invocation{Binary: tool, Dir: t.TempDir(), Stdin: "\n"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, "got:[]") {
		t.Fatalf("expected empty line read from stdin, got %q", res.Output)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := NewCommandExecutor().Run(context.Background(), Invocation{Binary: filepath.Join(t.TempDir(), "absent"), Dir: t.TempDir()})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	tool := writeScript(t, t.TempDir(), "hang", "exec sleep 5")
	ctx, cancel := WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewCommandExecutor().Run(ctx, Invocation{Binary: tool, Dir: t.TempDir()})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCommandLineWine(t *testing.T) {
	exec := CommandExecutor{Wine: "wine64"}
	name, args := exec.commandLine(Invocation{Binary: "/tools/makerom.exe", Args: []string{"-f", "cci"}})
	if runtime.GOOS == "windows" {
		if name != "/tools/makerom.exe" {
			t.Fatalf("unexpected binary on windows: %s", name)
		}
		return
	}
	if name != "wine64" {
		t.Fatalf("expected wine launcher, got %q", name)
	}
	want := []string{"/tools/makerom.exe", "-f", "cci"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestWithTimeoutZeroKeepsContext(t *testing.T) {
	parent := context.Background()
	ctx, cancel := WithTimeout(parent, 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline")
	}
}
