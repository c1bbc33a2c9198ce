package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"ctrdecrypt/internal/fileutil"
	"ctrdecrypt/internal/logging"
	"ctrdecrypt/internal/pipeline"
	"ctrdecrypt/internal/textutil"
)

const (
	ext3DS = ".3ds"
	extCIA = ".cia"
)

// Inputs are the files a run will process, sorted by name.
type Inputs struct {
	ThreeDS []string
	CIA     []string
}

// Total is the number of inputs across both batches.
func (in Inputs) Total() int {
	return len(in.ThreeDS) + len(in.CIA)
}

// SanitizeNames renames 3DS and CIA files in dir whose names carry characters
// the external tools cannot handle. A rename that would overwrite an existing
// file is skipped. It returns the number of files renamed.
func SanitizeNames(dir string, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read input directory: %w", err)
	}
	renamed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isCandidate(entry.Name()) {
			continue
		}
		name := entry.Name()
		clean := textutil.SanitizeFileName(name)
		if clean == name {
			continue
		}
		target := filepath.Join(dir, clean)
		if fileutil.Exists(target) {
			logging.WarnWithContext(logger, "sanitized name already taken", "sanitize_skipped",
				logging.String("file", name),
				logging.String("target", clean),
				logging.String(logging.FieldImpact, "file keeps its original name"),
			)
			continue
		}
		if err := os.Rename(filepath.Join(dir, name), target); err != nil {
			logging.WarnWithContext(logger, "failed to sanitize file name", "sanitize_failed",
				logging.String("file", name),
				logging.String("target", clean),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file keeps its original name"),
			)
			continue
		}
		logger.Debug("file renamed", logging.String("from", name), logging.String("to", clean))
		renamed++
	}
	return renamed, nil
}

// Discover lists the 3DS and CIA inputs in dir. Outputs of earlier runs,
// recognised by their "-decrypted" marker, are excluded.
func Discover(dir string) (Inputs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Inputs{}, fmt.Errorf("read input directory: %w", err)
	}
	var inputs Inputs
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if pipeline.IsDecryptedName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ext3DS:
			inputs.ThreeDS = append(inputs.ThreeDS, path)
		case extCIA:
			inputs.CIA = append(inputs.CIA, path)
		}
	}
	slices.Sort(inputs.ThreeDS)
	slices.Sort(inputs.CIA)
	return inputs, nil
}

// ConversionCandidates lists the decrypted CIA archives in dir.
func ConversionCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(name), extCIA) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(textutil.Stem(name)), "-decrypted") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	slices.Sort(out)
	return out, nil
}

func isCandidate(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ext3DS, extCIA:
		return true
	default:
		return false
	}
}
