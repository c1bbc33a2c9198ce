package ctrtool_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ctrdecrypt/internal/services/ctrtool"
	"ctrdecrypt/internal/services/toolrun"
)

type recordingExecutor struct {
	output string
	calls  []toolrun.Invocation
	effect func(inv toolrun.Invocation)
}

func (r *recordingExecutor) Run(_ context.Context, inv toolrun.Invocation) (toolrun.Result, error) {
	r.calls = append(r.calls, inv)
	if r.effect != nil {
		r.effect(inv)
	}
	return toolrun.Result{ExitCode: 1, Output: r.output}, nil
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ctrtool.New("  "); err == nil {
		t.Fatal("expected error for blank binary")
	}
}

func TestInspectWritesReportAndIgnoresExitCode(t *testing.T) {
	dir := t.TempDir()
	exec := &recordingExecutor{output: "Title id: 0004000000055D00\nCrypto Key: Secure\n"}
	client, err := ctrtool.New(filepath.Join(dir, "ctrtool"), ctrtool.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}

	result, err := client.Inspect(context.Background(), dir, filepath.Join(dir, "seeddb.bin"), "/in/game.cia")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.Output != exec.output {
		t.Fatalf("unexpected output %q", result.Output)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(exec.calls))
	}
	call := exec.calls[0]
	if call.Dir != dir {
		t.Fatalf("expected working dir %q, got %q", dir, call.Dir)
	}
	wantArgs := []string{"--seeddb", filepath.Join(dir, "seeddb.bin"), "/in/game.cia"}
	if !reflect.DeepEqual(call.Args, wantArgs) {
		t.Fatalf("args = %v, want %v", call.Args, wantArgs)
	}
	report, err := os.ReadFile(filepath.Join(dir, ctrtool.ReportFileName))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(report) != exec.output {
		t.Fatalf("report mismatch: %q", report)
	}
}

func TestExtractTWLContentRenamesExtractedFile(t *testing.T) {
	dir := t.TempDir()
	exec := &recordingExecutor{effect: func(inv toolrun.Invocation) {
		_ = os.WriteFile(filepath.Join(inv.Dir, "00000000.app.0000.00000000"), []byte("srl"), 0o644)
	}}
	client, err := ctrtool.New("ctrtool", ctrtool.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}

	path, _, err := client.ExtractTWLContent(context.Background(), dir, "/in/dsi.cia")
	if err != nil {
		t.Fatalf("ExtractTWLContent: %v", err)
	}
	if path != filepath.Join(dir, ctrtool.TWLContentName) {
		t.Fatalf("unexpected content path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected renamed content: %v", err)
	}
	target := filepath.Join(dir, ctrtool.TWLContentName)
	wantArgs := []string{"--contents=" + target, "--meta=" + target, "/in/dsi.cia"}
	if !reflect.DeepEqual(exec.calls[0].Args, wantArgs) {
		t.Fatalf("args = %v, want %v", exec.calls[0].Args, wantArgs)
	}
}

func TestExtractTWLContentMissingOutput(t *testing.T) {
	client, err := ctrtool.New("ctrtool", ctrtool.WithExecutor(&recordingExecutor{}))
	if err != nil {
		t.Fatal(err)
	}
	path, _, err := client.ExtractTWLContent(context.Background(), t.TempDir(), "/in/dsi.cia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path, got %q", path)
	}
}
