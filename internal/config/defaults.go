package config

import (
	"os"
	"path/filepath"
)

const (
	defaultInputDir            = "."
	defaultToolsDir            = "bin"
	defaultLogDir              = "log"
	defaultInspector           = "ctrtool"
	defaultDecryptor           = "decrypt"
	defaultBuilder             = "makerom"
	defaultSeedDB              = "seeddb.bin"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultStaleWorkspaceHours = 24
	defaultLedgerFile          = "ledger.db"
	lockFileName               = "ctrdecrypt.lock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			ToolsDir:     defaultToolsDir,
			LogDir:       defaultLogDir,
			WorkspaceDir: defaultWorkspaceDir(),
		},
		Tools: Tools{
			Inspector: defaultInspector,
			Decryptor: defaultDecryptor,
			Builder:   defaultBuilder,
			SeedDB:    defaultSeedDB,
		},
		Workers: Workers{
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
		},
		Conversion: Conversion{
			Prompt: true,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultWorkspaceDir() string {
	return filepath.Join(os.TempDir(), "ctrdecrypt")
}
