package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LinkMethod records how LinkOrCopy materialised the destination.
type LinkMethod string

const (
	MethodHardLink LinkMethod = "hardlink"
	MethodCopy     LinkMethod = "copy"
)

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile applies the umask; tools must keep their executable bits.
	return os.Chmod(dst, mode)
}

// LinkOrCopy hard-links src to dst, falling back to a mode-preserving copy
// when linking is unavailable (different filesystem, unsupported platform).
// Symlinks are resolved first so dst names the target file, not the link.
func LinkOrCopy(src, dst string) (LinkMethod, error) {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", src, err)
	}
	src = resolved
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", src)
	}
	if err := os.Link(src, dst); err == nil {
		return MethodHardLink, nil
	} else if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("link %s: %w", dst, err)
	}
	if err := CopyFileMode(src, dst, info.Mode().Perm()); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	return MethodCopy, nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
