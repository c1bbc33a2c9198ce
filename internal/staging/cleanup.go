package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ctrdecrypt/internal/logging"
)

// DirInfo describes one leftover directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Age reports how long ago the directory was last modified.
func (d DirInfo) Age(now time.Time) time.Duration {
	return now.Sub(d.ModTime)
}

// CleanupError pairs a directory path with the error that kept it on disk.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStaleResult lists what a sweep removed and what it could not.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// ListDirectories returns the directories under root whose name starts with
// prefix. A missing root yields no entries and no error.
func ListDirectories(root, prefix string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(root, entry.Name())
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	return dirs, nil
}

// CleanStale removes the prefixed directories under root that are older than
// maxAge. A non-positive maxAge disables the sweep.
func CleanStale(ctx context.Context, root, prefix string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if maxAge <= 0 {
		return result
	}
	dirs, err := ListDirectories(root, prefix)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}

	now := time.Now()
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		age := dir.Age(now)
		if age <= maxAge {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "stale workspace could not be removed", "workspace_reap_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check workspace_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dir.Path),
				logging.Duration("age", age.Truncate(time.Second)),
				logging.Int("bytes", int(dir.Size)),
				logging.String(logging.FieldEventType, "workspace_reaped"),
			)
		}
	}
	return result
}

// dirSize sums regular file sizes below path, skipping unreadable entries.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
