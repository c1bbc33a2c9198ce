package reassembly

import "ctrdecrypt/internal/title"

// Entry is one builder input produced by a plan.
type Entry struct {
	Fragment Fragment
	Slot     int
	Index    uint32
}

// Strategy maps discovered fragments to builder inputs.
type Strategy interface {
	Name() string
	Plan(fragments []Fragment) []Entry
}

// partitionSlots is the fixed cartridge partition table.
var partitionSlots = map[string]int{
	"tmp.Main.ncch":           0,
	"tmp.Manual.ncch":         1,
	"tmp.DownloadPlay.ncch":   2,
	"tmp.Partition4.ncch":     3,
	"tmp.Partition5.ncch":     4,
	"tmp.Partition6.ncch":     5,
	"tmp.N3DSUpdateData.ncch": 6,
	"tmp.UpdateData.ncch":     7,
}

// FixedMapping assigns cartridge partitions by name. Unknown names map to 0.
type FixedMapping struct{}

func (FixedMapping) Name() string { return "fixed" }

func (FixedMapping) Plan(fragments []Fragment) []Entry {
	entries := make([]Entry, 0, len(fragments))
	for _, frag := range fragments {
		slot := partitionSlots[frag.Name()]
		entries = append(entries, Entry{Fragment: frag, Slot: slot, Index: uint32(slot)})
	}
	return entries
}

// Sequential assigns each fragment its position in name order.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Plan(fragments []Fragment) []Entry {
	entries := make([]Entry, 0, len(fragments))
	for i, frag := range fragments {
		entries = append(entries, Entry{Fragment: frag, Slot: i, Index: uint32(i)})
	}
	return entries
}

// ContentID pairs fragments with declared content identifiers by position.
// Positions past the declared list fall back to the position itself.
type ContentID struct {
	Declared []uint32
}

func (ContentID) Name() string { return "content-id" }

func (s ContentID) Plan(fragments []Fragment) []Entry {
	entries := make([]Entry, 0, len(fragments))
	for i, frag := range fragments {
		index := uint32(i)
		if i < len(s.Declared) {
			index = s.Declared[i]
		}
		entries = append(entries, Entry{Fragment: frag, Slot: i, Index: index})
	}
	return entries
}

// ForCategory picks the CIA strategy for a title category.
func ForCategory(category title.Category, declared []uint32) Strategy {
	if category.UsesContentCatalog() {
		return ContentID{Declared: declared}
	}
	return Sequential{}
}
