package reassembly

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// PendingPrefix marks a fragment that has been picked up for reassembly.
	PendingPrefix = "tmp."
	// FragmentExt is the extension the decryptor gives its partition files.
	FragmentExt = ".ncch"

	ncchMagicOffset = 0x100
)

var ncchMagic = []byte("NCCH")

// Fragment is one decrypted partition file.
type Fragment struct {
	Path string
}

// Name returns the fragment's base file name.
func (f Fragment) Name() string {
	return filepath.Base(f.Path)
}

// MarkPending renames every "*.ncch" in dir that lacks the pending prefix to
// "tmp.<stem>.ncch". It returns the number of files renamed.
func MarkPending(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FragmentExt))
	if err != nil {
		return 0, err
	}
	renamed := 0
	for _, path := range matches {
		name := filepath.Base(path)
		if strings.HasPrefix(name, PendingPrefix) {
			continue
		}
		stem := strings.TrimSuffix(name, FragmentExt)
		target := filepath.Join(dir, PendingPrefix+stem+FragmentExt)
		if err := os.Rename(path, target); err != nil {
			return renamed, fmt.Errorf("mark fragment %s: %w", name, err)
		}
		renamed++
	}
	return renamed, nil
}

// Discover lists the pending fragments in dir sorted by file name.
func Discover(dir string) ([]Fragment, error) {
	matches, err := filepath.Glob(filepath.Join(dir, PendingPrefix+"*"+FragmentExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	fragments := make([]Fragment, 0, len(matches))
	for _, path := range matches {
		fragments = append(fragments, Fragment{Path: path})
	}
	return fragments, nil
}

// Clean removes every fragment in dir, pending or not.
func Clean(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FragmentExt))
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasNCCHMagic reports whether the file carries the NCCH header magic.
func HasNCCHMagic(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	header := make([]byte, ncchMagicOffset+len(ncchMagic))
	if _, err := io.ReadFull(file, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(header[ncchMagicOffset:], ncchMagic), nil
}

// ParseDeclaredContentIDs reads "ContentId:" lines from an inspector report.
// The first eight characters after the keyword are parsed as hexadecimal;
// entries that do not parse are skipped.
func ParseDeclaredContentIDs(report string) []uint32 {
	var ids []uint32
	scanner := bufio.NewScanner(strings.NewReader(report))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		_, after, found := strings.Cut(line, contentIDKeyword)
		if !found {
			continue
		}
		value := strings.TrimSpace(after)
		if len(value) > 8 {
			value = value[:8]
		}
		id, ok := parseHex32(value)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// LoadDeclaredContentIDs reads the declared identifiers from a saved report.
// A missing report yields no identifiers.
func LoadDeclaredContentIDs(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ParseDeclaredContentIDs(string(data)), nil
}

const contentIDKeyword = "ContentId:"

func parseHex32(value string) (uint32, bool) {
	if value == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
