package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("CTRDECRYPT_TOOLS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ToolsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		c.Paths.InputDir = defaultInputDir
	}
	if strings.TrimSpace(c.Paths.ToolsDir) == "" {
		c.Paths.ToolsDir = defaultToolsDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir()
	}

	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.ToolsDir, err = expandPath(c.Paths.ToolsDir); err != nil {
		return fmt.Errorf("paths.tools_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.Inspector = strings.TrimSpace(c.Tools.Inspector)
	if c.Tools.Inspector == "" {
		c.Tools.Inspector = defaultInspector
	}
	c.Tools.Decryptor = strings.TrimSpace(c.Tools.Decryptor)
	if c.Tools.Decryptor == "" {
		c.Tools.Decryptor = defaultDecryptor
	}
	c.Tools.Builder = strings.TrimSpace(c.Tools.Builder)
	if c.Tools.Builder == "" {
		c.Tools.Builder = defaultBuilder
	}
	c.Tools.SeedDB = strings.TrimSpace(c.Tools.SeedDB)
	if c.Tools.SeedDB == "" {
		c.Tools.SeedDB = defaultSeedDB
	}
	if strings.HasPrefix(c.Tools.SeedDB, "~") {
		expanded, err := expandPath(c.Tools.SeedDB)
		if err != nil {
			return fmt.Errorf("tools.seed_db: %w", err)
		}
		c.Tools.SeedDB = expanded
	}
	return nil
}

func (c *Config) normalizeWorkers() error {
	if value, ok := os.LookupEnv("CTRDECRYPT_MAX_PARALLEL"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("CTRDECRYPT_MAX_PARALLEL: %w", err)
		}
		c.Workers.MaxParallel = parsed
	}
	return nil
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Path = strings.TrimSpace(c.Ledger.Path)
	if c.Ledger.Path == "" {
		c.Ledger.Path = filepath.Join(c.Paths.LogDir, defaultLedgerFile)
		return nil
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
