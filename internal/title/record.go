package title

import (
	"bufio"
	"regexp"
	"strings"
)

// DefaultVersion is reported when the inspector output carries no version.
const DefaultVersion = "0"

// Record is the parsed identity of one title.
type Record struct {
	TitleID      string
	Version      string
	CryptoMarker string
}

// Dialect selects the keyword set used to read an inspector report.
type Dialect int

const (
	// DialectDefault reads "Title id:", "TitleVersion:" and the "Crypto Key" line.
	DialectDefault Dialect = iota
	// DialectTWL reads "TitleId:", "TitleVersion:" and the "Encrypted:" value.
	DialectTWL
)

func (d Dialect) String() string {
	if d == DialectTWL {
		return "twl"
	}
	return "default"
}

var (
	titleIDPattern      = regexp.MustCompile(`(?i)Title id:\s*(\S+)`)
	titleVersionPattern = regexp.MustCompile(`(?i)TitleVersion:\s*(\d+)`)
	twlTitleIDPattern   = regexp.MustCompile(`(?i)TitleId:\s*(\S+)`)
	twlEncryptedPattern = regexp.MustCompile(`(?i)Encrypted:\s*(\S+)`)
)

const cryptoKeyPhrase = "Crypto Key"

// Parse reads an inspector report. Fields that never appear stay empty
// (version falls back to DefaultVersion); absence is never an error.
func Parse(report string, dialect Dialect) Record {
	var (
		rec                        Record
		haveID, haveVer, haveCrypt bool
	)
	idPattern := titleIDPattern
	if dialect == DialectTWL {
		idPattern = twlTitleIDPattern
	}

	scanner := bufio.NewScanner(strings.NewReader(report))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !haveID {
			if m := idPattern.FindStringSubmatch(line); m != nil {
				rec.TitleID, haveID = m[1], true
			}
		}
		if !haveVer {
			if m := titleVersionPattern.FindStringSubmatch(line); m != nil {
				rec.Version, haveVer = m[1], true
			}
		}
		if !haveCrypt {
			switch dialect {
			case DialectTWL:
				if m := twlEncryptedPattern.FindStringSubmatch(line); m != nil {
					rec.CryptoMarker, haveCrypt = m[1], true
				}
			default:
				if strings.Contains(line, cryptoKeyPhrase) {
					rec.CryptoMarker, haveCrypt = strings.TrimSpace(line), true
				}
			}
		}
		if haveID && haveVer && haveCrypt {
			break
		}
	}
	if !haveVer {
		rec.Version = DefaultVersion
	}
	return rec
}

// Secure reports whether the crypto marker names standard "Secure" crypto.
func (r Record) Secure() bool {
	return strings.Contains(r.CryptoMarker, "Secure")
}

// Unencrypted reports whether the crypto marker names no crypto at all.
func (r Record) Unencrypted() bool {
	return strings.Contains(r.CryptoMarker, "None")
}

// UpperID returns the title ID in upper case, the form the classifier expects.
func (r Record) UpperID() string {
	return strings.ToUpper(strings.TrimSpace(r.TitleID))
}

// Label renders "<id> v<version>" for log lines.
func (r Record) Label() string {
	id := r.TitleID
	if id == "" {
		id = "unknown"
	}
	version := r.Version
	if version == "" {
		version = DefaultVersion
	}
	return id + " v" + version
}

// ReportsError reports whether the inspector flagged the archive as invalid.
func ReportsError(report string) bool {
	return strings.Contains(report, "ERROR")
}
