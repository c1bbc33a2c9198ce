package makerom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ctrdecrypt/internal/services/toolrun"
)

// Format is the container the builder writes.
type Format string

const (
	FormatCCI Format = "cci"
	FormatCIA Format = "cia"
)

// Input is one partition passed to the builder.
type Input struct {
	Path  string
	Slot  int
	Index uint32
}

// Arg renders the input as the builder's "-i" operand.
func (i Input) Arg() string {
	return fmt.Sprintf("%s:%d:%d", i.Path, i.Slot, i.Index)
}

// BuildRequest describes one container build from decrypted partitions.
type BuildRequest struct {
	Format  Format
	Output  string
	Inputs  []Input
	DLC     bool
	Version string
}

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

// Client runs the builder.
type Client struct {
	binary  string
	timeout time.Duration
	exec    toolrun.Executor
}

// New constructs a builder client for the given binary path.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("builder binary required")
	}
	client := &Client{binary: binary, exec: toolrun.NewCommandExecutor()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BuildArgs returns the builder command line for req.
func BuildArgs(req BuildRequest) []string {
	args := []string{"-f", string(req.Format), "-ignoresign", "-target", "p", "-o", req.Output}
	if req.DLC {
		args = append(args, "-dlc")
	}
	for _, input := range req.Inputs {
		args = append(args, "-i", input.Arg())
	}
	if req.Version != "" {
		args = append(args, "-ver", req.Version)
	}
	return args
}

// TWLArgs returns the command line that rebuilds a DS title from its content.
func TWLArgs(content, output, version string) []string {
	return []string{"-srl", content, "-f", string(FormatCIA), "-ignoresign", "-target", "p", "-o", output, "-ver", version}
}

// ConvertArgs returns the command line that converts a CIA archive to CCI.
func ConvertArgs(input, output string) []string {
	return []string{"-ciatocci", input, "-o", output}
}

// Build assembles a container. Success is judged by the caller from the
// presence of req.Output.
func (c *Client) Build(ctx context.Context, dir string, req BuildRequest) (toolrun.Result, error) {
	return c.run(ctx, dir, BuildArgs(req))
}

// BuildTWL rebuilds a DS title.
func (c *Client) BuildTWL(ctx context.Context, dir, content, output, version string) (toolrun.Result, error) {
	return c.run(ctx, dir, TWLArgs(content, output, version))
}

// ConvertToCCI converts a decrypted CIA archive to CCI.
func (c *Client) ConvertToCCI(ctx context.Context, dir, input, output string) (toolrun.Result, error) {
	return c.run(ctx, dir, ConvertArgs(input, output))
}

func (c *Client) run(ctx context.Context, dir string, args []string) (toolrun.Result, error) {
	runCtx, cancel := toolrun.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.exec.Run(runCtx, toolrun.Invocation{Binary: c.binary, Args: args, Dir: dir})
}
