package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ctrdecrypt/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.ToolsDir = filepath.Join(base, "bin")
	cfgVal.Paths.LogDir = filepath.Join(base, "log")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "work")
	cfgVal.Ledger.Path = filepath.Join(base, "log", "ledger.db")
	cfgVal.Conversion.Prompt = false

	for _, dir := range []string{cfgVal.Paths.InputDir, cfgVal.Paths.ToolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithConversion toggles the CIA to CCI batch.
func WithConversion(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Conversion.ConvertToCCI = enabled
	}
}

// WithoutLedger disables the run history database.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// WithMaxParallel bounds batch parallelism.
func WithMaxParallel(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.MaxParallel = n
	}
}

// WithStubbedTools writes stub executables for the three tools and an empty
// seed database into the tools directory.
func WithStubbedTools() ConfigOption {
	return func(b *configBuilder) {
		binDir := b.cfg.Paths.ToolsDir
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range []string{b.cfg.Tools.Inspector, b.cfg.Tools.Decryptor, b.cfg.Tools.Builder} {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		if err := os.WriteFile(b.cfg.SeedDBPath(), []byte("seeds"), 0o644); err != nil {
			b.t.Fatalf("write seed db: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
