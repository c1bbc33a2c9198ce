package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveTool locates one of the external 3DS tools.
//
// Lookup order: an explicit path; a native build inside toolsDir; a native
// build on PATH; a Windows build (<name>.exe) inside toolsDir, which on
// non-Windows hosts additionally requires wine on PATH.
func ResolveTool(name, toolsDir, description string) Status {
	name = strings.TrimSpace(name)
	result := Status{Name: name, Description: description}
	if name == "" {
		result.Detail = "tool not configured"
		return result
	}

	if strings.ContainsRune(name, os.PathSeparator) || filepath.IsAbs(name) {
		result.Command = name
		if info, err := os.Stat(name); err == nil && isExecutable(info) {
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("%s is missing or not executable", name)
		return result
	}

	if runtime.GOOS != "windows" && toolsDir != "" {
		candidate := filepath.Join(toolsDir, name)
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	if runtime.GOOS != "windows" {
		if native, err := exec.LookPath(name); err == nil {
			result.Command = native
			result.Available = true
			return result
		}
	}

	exe := filepath.Join(toolsDir, name+".exe")
	result.Command = exe
	info, err := os.Stat(exe)
	if err != nil || info.IsDir() {
		result.Detail = fmt.Sprintf("cannot find %s (native) or %s", name, exe)
		return result
	}
	if runtime.GOOS == "windows" {
		result.Available = true
		return result
	}
	if _, err := exec.LookPath("wine"); err != nil {
		result.Detail = fmt.Sprintf("%s requires wine, which is not on PATH", filepath.Base(exe))
		return result
	}
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
