package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctrdecrypt/internal/logging"
)

func newTestIsolator(t *testing.T) *Isolator {
	t.Helper()
	shared := t.TempDir()
	write := func(name string, mode os.FileMode) string {
		path := filepath.Join(shared, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
			t.Fatal(err)
		}
		return path
	}
	sources := Sources{
		Inspector: write("ctrtool", 0o755),
		Decryptor: write("decrypt", 0o755),
		Builder:   write("makerom", 0o755),
		SeedDB:    write("seeddb.bin", 0o644),
	}
	iso, err := NewIsolator(filepath.Join(t.TempDir(), "root"), sources, logging.NewNop())
	if err != nil {
		t.Fatalf("NewIsolator: %v", err)
	}
	return iso
}

func TestNewIsolatorRequiresSources(t *testing.T) {
	if _, err := NewIsolator(t.TempDir(), Sources{Inspector: "x"}, nil); err == nil {
		t.Fatal("expected error for incomplete sources")
	}
	if _, err := NewIsolator(" ", Sources{}, nil); err == nil {
		t.Fatal("expected error for blank root")
	}
}

func TestAcquirePopulatesWorkspace(t *testing.T) {
	iso := newTestIsolator(t)
	ws, err := iso.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Close()

	if !strings.HasPrefix(filepath.Base(ws.Dir), DirPrefix) {
		t.Fatalf("unexpected workspace name %q", ws.Dir)
	}
	for _, path := range []string{ws.Inspector, ws.Decryptor, ws.Builder, ws.SeedDB} {
		if filepath.Dir(path) != ws.Dir {
			t.Fatalf("%s not inside workspace", path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s: %v", path, err)
		}
	}
	info, err := os.Stat(ws.Builder)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("builder lost executable bit: %v", info.Mode())
	}
	if ws.ContentReport() != filepath.Join(ws.Dir, "CTR_Content.txt") {
		t.Fatalf("content report = %q", ws.ContentReport())
	}
}

func TestAcquireResolvesSymlinkedTools(t *testing.T) {
	shared := t.TempDir()
	for _, sub := range []string{"bin", "opt"} {
		if err := os.MkdirAll(filepath.Join(shared, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	content := []byte("#!/bin/sh\necho ctrtool\n")
	if err := os.WriteFile(filepath.Join(shared, "opt", "ctrtool-1.0"), content, 0o755); err != nil {
		t.Fatal(err)
	}
	inspector := filepath.Join(shared, "bin", "ctrtool")
	if err := os.Symlink("../opt/ctrtool-1.0", inspector); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	write := func(name string, mode os.FileMode) string {
		path := filepath.Join(shared, "bin", name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
			t.Fatal(err)
		}
		return path
	}
	sources := Sources{
		Inspector: inspector,
		Decryptor: write("decrypt", 0o755),
		Builder:   write("makerom", 0o755),
		SeedDB:    write("seeddb.bin", 0o644),
	}
	iso, err := NewIsolator(filepath.Join(t.TempDir(), "root"), sources, logging.NewNop())
	if err != nil {
		t.Fatalf("NewIsolator: %v", err)
	}
	ws, err := iso.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Close()

	info, err := os.Lstat(ws.Inspector)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("inspector copied as symlink: %v", info.Mode())
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("inspector lost executable bit: %v", info.Mode())
	}
	got, err := os.ReadFile(ws.Inspector)
	if err != nil {
		t.Fatalf("read inspector: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("inspector content = %q", got)
	}
}

func TestWorkspacesAreDistinct(t *testing.T) {
	iso := newTestIsolator(t)
	a, err := iso.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := iso.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.Dir == b.Dir {
		t.Fatal("expected distinct workspace directories")
	}
}

func TestUseRemovesWorkspaceOnReturn(t *testing.T) {
	iso := newTestIsolator(t)
	var dir string
	err := iso.Use(context.Background(), func(ws *Workspace) error {
		dir = ws.Dir
		return os.WriteFile(filepath.Join(ws.Dir, "tmp.Main.ncch"), []byte("x"), 0o644)
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace still present: %v", err)
	}
}

func TestUseRemovesWorkspaceOnError(t *testing.T) {
	iso := newTestIsolator(t)
	boom := errors.New("boom")
	var dir string
	err := iso.Use(context.Background(), func(ws *Workspace) error {
		dir = ws.Dir
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace still present: %v", err)
	}
}

func TestUseRemovesWorkspaceOnPanic(t *testing.T) {
	iso := newTestIsolator(t)
	var dir string
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = iso.Use(context.Background(), func(ws *Workspace) error {
			dir = ws.Dir
			panic("tool wrapper exploded")
		})
	}()
	if dir == "" {
		t.Fatal("workspace never created")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace still present after panic: %v", err)
	}
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	iso := newTestIsolator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := iso.Acquire(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	entries, _ := os.ReadDir(iso.Root())
	if len(entries) != 0 {
		t.Fatalf("expected no workspaces, found %d", len(entries))
	}
}
