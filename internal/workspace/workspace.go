package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/services/ctrtool"
)

// DirPrefix names every task workspace directory.
const DirPrefix = "task-"

// Sources are the resolved shared tool and seed database paths.
type Sources struct {
	Inspector string
	Decryptor string
	Builder   string
	SeedDB    string
}

func (s Sources) validate() error {
	var missing []string
	for name, path := range map[string]string{
		"inspector": s.Inspector,
		"decryptor": s.Decryptor,
		"builder":   s.Builder,
		"seed db":   s.SeedDB,
	} {
		if strings.TrimSpace(path) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("workspace sources missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Workspace is one task's private directory.
type Workspace struct {
	ID        string
	Dir       string
	Inspector string
	Decryptor string
	Builder   string
	SeedDB    string
}

// ContentReport is where the inspector report for this task is kept.
func (w *Workspace) ContentReport() string {
	return filepath.Join(w.Dir, ctrtool.ReportFileName)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.Dir, err)
	}
	return nil
}

// Isolator creates workspaces below a root directory.
type Isolator struct {
	root    string
	sources Sources
	logger  *slog.Logger
}

// NewIsolator validates sources and ensures the root exists.
func NewIsolator(root string, sources Sources, logger *slog.Logger) (*Isolator, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("workspace root required")
	}
	if err := sources.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Isolator{root: root, sources: sources, logger: logging.NewComponentLogger(logger, "workspace")}, nil
}

// Root returns the directory that holds the task workspaces.
func (i *Isolator) Root() string {
	return i.root
}

// Acquire creates a fresh workspace populated with the tools and seed database.
func (i *Isolator) Acquire(ctx context.Context) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	dir := filepath.Join(i.root, DirPrefix+id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	ws := &Workspace{ID: id, Dir: dir}

	targets := []struct {
		src string
		dst *string
	}{
		{i.sources.Inspector, &ws.Inspector},
		{i.sources.Decryptor, &ws.Decryptor},
		{i.sources.Builder, &ws.Builder},
		{i.sources.SeedDB, &ws.SeedDB},
	}
	for _, target := range targets {
		dst := filepath.Join(dir, filepath.Base(target.src))
		method, err := fileutil.LinkOrCopy(target.src, dst)
		if err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("populate workspace: %w", err)
		}
		*target.dst = dst
		i.logger.Debug("workspace input placed",
			logging.String("workspace", id),
			logging.String("file", filepath.Base(dst)),
			logging.String("method", string(method)),
		)
	}
	return ws, nil
}

// Use runs fn inside a fresh workspace and removes the workspace afterwards.
// A panic in fn is re-raised once the directory is gone.
func (i *Isolator) Use(ctx context.Context, fn func(*Workspace) error) (err error) {
	ws, err := i.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logging.WarnWithContext(i.logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("path", ws.Dir),
				logging.Error(closeErr),
				logging.String(logging.FieldImpact, "leftover directory is reaped on a later run"),
			)
			if err == nil {
				err = closeErr
			}
		}
	}()
	return fn(ws)
}
