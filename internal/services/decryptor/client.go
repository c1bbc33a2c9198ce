package decryptor

import (
	"context"
	"errors"
	"strings"
	"time"

	"ctrdecrypt/internal/services/toolrun"
)

// confirmInput answers the tool's "press enter" prompt.
const confirmInput = "\n"

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

// Client runs the decryptor.
type Client struct {
	binary  string
	timeout time.Duration
	exec    toolrun.Executor
}

// New constructs a decryptor client for the given binary path.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("decryptor binary required")
	}
	client := &Client{binary: binary, exec: toolrun.NewCommandExecutor()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Decrypt runs the decryptor against file with dir as working directory.
// Fragments land in dir; callers discover them afterwards.
func (c *Client) Decrypt(ctx context.Context, dir, file string) (toolrun.Result, error) {
	runCtx, cancel := toolrun.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.exec.Run(runCtx, toolrun.Invocation{
		Binary: c.binary,
		Args:   []string{file},
		Dir:    dir,
		Stdin:  confirmInput,
	})
}
