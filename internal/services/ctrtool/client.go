package ctrtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/services/toolrun"
)

const (
	// ReportFileName holds the raw inspector output inside a workspace.
	ReportFileName = "CTR_Content.txt"
	// TWLContentName is the extracted DS content after renaming.
	TWLContentName = "00000000.app"
	// twlExtractedName is what the inspector writes for content index 0.
	twlExtractedName = TWLContentName + ".0000.00000000"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolrun.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds each invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// Client runs the inspector.
type Client struct {
	binary  string
	timeout time.Duration
	exec    toolrun.Executor
}

// New constructs an inspector client for the given binary path.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("inspector binary required")
	}
	client := &Client{binary: binary, exec: toolrun.NewCommandExecutor()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// InspectArgs returns the inspector arguments for a metadata report.
func InspectArgs(seedDB, file string) []string {
	return []string{"--seeddb", seedDB, file}
}

// ExtractArgs returns the inspector arguments that extract DS content into dir.
func ExtractArgs(dir, file string) []string {
	target := filepath.Join(dir, TWLContentName)
	return []string{"--contents=" + target, "--meta=" + target, file}
}

// Inspect runs the inspector in dir and returns its combined output. The
// report is also written to ReportFileName inside dir. The exit status is
// not treated as failure; only launch problems and timeouts are errors.
func (c *Client) Inspect(ctx context.Context, dir, seedDB, file string) (toolrun.Result, error) {
	result, err := c.run(ctx, dir, InspectArgs(seedDB, file))
	if writeErr := os.WriteFile(filepath.Join(dir, ReportFileName), []byte(result.Output), 0o644); writeErr != nil && err == nil {
		err = writeErr
	}
	return result, err
}

// ExtractTWLContent extracts the DS content of file into dir and returns the
// path of the renamed content, or "" when the inspector produced nothing.
func (c *Client) ExtractTWLContent(ctx context.Context, dir, file string) (string, toolrun.Result, error) {
	result, err := c.run(ctx, dir, ExtractArgs(dir, file))
	extracted := filepath.Join(dir, twlExtractedName)
	target := filepath.Join(dir, TWLContentName)
	if fileutil.Exists(extracted) {
		if renameErr := os.Rename(extracted, target); renameErr != nil {
			return "", result, renameErr
		}
	}
	if !fileutil.Exists(target) {
		return "", result, err
	}
	return target, result, err
}

func (c *Client) run(ctx context.Context, dir string, args []string) (toolrun.Result, error) {
	runCtx, cancel := toolrun.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.exec.Run(runCtx, toolrun.Invocation{Binary: c.binary, Args: args, Dir: dir})
}
