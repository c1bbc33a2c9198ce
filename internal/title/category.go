package title

import (
	"regexp"
	"strings"
)

// Category is the kind of title an identifier belongs to.
type Category int

const (
	Unknown Category = iota
	Game
	System
	Demo
	Patch
	DLC
)

func (c Category) String() string {
	switch c {
	case Game:
		return "Game"
	case System:
		return "System"
	case Demo:
		return "Demo"
	case Patch:
		return "Patch"
	case DLC:
		return "DLC"
	default:
		return "Unknown"
	}
}

// Description is the human label used in log lines.
func (c Category) Description() string {
	switch c {
	case Game:
		return "eShop or Gamecard"
	case System:
		return "system"
	case Demo:
		return "demo"
	case Patch:
		return "update"
	case DLC:
		return "DLC"
	default:
		return "unrecognized"
	}
}

// UsesContentCatalog reports whether reassembly must honour the declared
// content identifiers instead of positional indices.
func (c Category) UsesContentCatalog() bool {
	return c == Patch || c == DLC
}

type rule struct {
	category  Category
	fragments []string
}

// Order matters: the first rule whose fragment occurs in the identifier wins.
var classificationRules = []rule{
	{Game, []string{"00040000"}},
	{System, []string{"00040010", "0004001B", "00040030", "0004009B", "000400DB", "00040130", "00040138"}},
	{Demo, []string{"00040002"}},
	{Patch, []string{"0004000E"}},
	{DLC, []string{"0004008C"}},
}

var unsupportedForConversion = []string{
	"000400DB", "0004001B", "0004009B", "00040010", "00040030", "00040130",
	"0004000E", "0004008C", "00048005", "0004800F", "00048004", "00040002",
}

// TWLPrefix marks identifiers that may wrap a legacy DSi (TWL) title.
const TWLPrefix = "00048"

// Classify maps a title identifier onto its category.
func Classify(titleID string) Category {
	id := strings.ToUpper(titleID)
	for _, r := range classificationRules {
		if containsAny(id, r.fragments) {
			return r.category
		}
	}
	return Unknown
}

// UnsupportedForConversion reports whether a title cannot be rebuilt as CCI.
// The set is independent of Classify and also covers TWL identifiers.
func UnsupportedForConversion(titleID string) bool {
	return containsAny(strings.ToUpper(titleID), unsupportedForConversion)
}

// IsTWLCandidate reports whether the identifier carries the TWL prefix.
func IsTWLCandidate(titleID string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(titleID)), TWLPrefix)
}

func containsAny(id string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(id, f) {
			return true
		}
	}
	return false
}

var filenameTagPattern = regexp.MustCompile(`\[([0-9a-fA-F]+)\s+v(\d+)\]`)

// ParseFilenameTag extracts a "[<title id> v<version>]" tag from a file stem.
func ParseFilenameTag(stem string) (Record, bool) {
	m := filenameTagPattern.FindStringSubmatch(stem)
	if m == nil {
		return Record{}, false
	}
	return Record{TitleID: m[1], Version: m[2]}, true
}
