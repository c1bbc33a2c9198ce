package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of filler. A size <= 0 writes a
// single byte, so the file is never mistaken for a failed build output.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// NCCHMagicOffset is where the NCCH header magic starts.
const NCCHMagicOffset = 0x100

// WriteNCCH writes a minimal partition file carrying the NCCH magic.
func WriteNCCH(t testing.TB, path string) {
	t.Helper()
	if err := writeNCCH(path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeNCCH(path string) error {
	data := make([]byte, NCCHMagicOffset+0x100)
	copy(data[NCCHMagicOffset:], "NCCH")
	return os.WriteFile(path, data, 0o644)
}

// Touch creates an empty file, creating parent directories as needed.
func Touch(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}
