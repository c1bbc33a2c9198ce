package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"ctrdecrypt/internal/config"
	"ctrdecrypt/internal/services"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	result := CheckCreatableDirectory("logs", path)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be created", path)
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seeddb.bin")
	if err := os.WriteFile(seed, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableFile("seed", seed); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckReadableFile("seed", filepath.Join(dir, "missing.bin")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
	if result := CheckReadableFile("seed", dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestRunAllReportsMissingTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := testConfig(t)

	report := RunAll(cfg)
	if report.Passed() {
		t.Fatal("expected failure without tools")
	}
	err := report.Err()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(report.Tools) != 3 {
		t.Fatalf("expected three tool statuses, got %d", len(report.Tools))
	}
}

func TestRunAllPassesWithStubTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a unix host")
	}
	t.Setenv("PATH", t.TempDir())
	cfg := testConfig(t)
	for _, name := range []string{cfg.Tools.Inspector, cfg.Tools.Decryptor, cfg.Tools.Builder} {
		path := filepath.Join(cfg.Paths.ToolsDir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	report := RunAll(cfg)
	if err := report.Err(); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	want := filepath.Join(cfg.Paths.ToolsDir, cfg.Tools.Builder)
	if got := report.ToolPath(cfg.Tools.Builder); got != want {
		t.Fatalf("ToolPath = %q, want %q", got, want)
	}
	if got := report.ToolPath("unknown"); got != "" {
		t.Fatalf("ToolPath(unknown) = %q", got)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.ToolsDir = filepath.Join(base, "bin")
	cfg.Paths.LogDir = filepath.Join(base, "log")
	cfg.Paths.WorkspaceDir = filepath.Join(base, "work")
	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.ToolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(cfg.SeedDBPath(), []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	return &cfg
}
